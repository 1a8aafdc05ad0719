package auth

import (
	"context"
	"time"

	"clipsync-server-go/internal/domain/auth/store"
	"clipsync-server-go/internal/platform/errors"
	"clipsync-server-go/internal/platform/logging"
)

// Credentials is the stored login material for one user account.
type Credentials struct {
	UserID       int64
	Username     string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
}

// UserSource resolves accounts by username. Implementations return
// errors.ErrNotFound (wrapped or bare) for unknown usernames.
type UserSource interface {
	FindByUsername(ctx context.Context, username string) (*Credentials, error)
}

// Identity is the authenticated principal attached to requests and
// connections after token verification.
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
	JTI      string
}

// Manager ties credentials, token issuance and session tracking together.
type Manager struct {
	users    UserSource
	tokens   *TokenIssuer
	sessions store.Store
	logger   *logging.Logger
}

// NewManager wires an auth manager.
func NewManager(users UserSource, tokens *TokenIssuer, sessions store.Store, logger *logging.Logger) *Manager {
	return &Manager{users: users, tokens: tokens, sessions: sessions, logger: logger}
}

// Login checks the password and issues a tracked access token.
func (m *Manager) Login(ctx context.Context, username, password string) (string, *Identity, error) {
	const op = "auth.login"

	creds, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", nil, errors.New(errors.KindAuth, op, "invalid username or password")
		}
		return "", nil, errors.Wrap(errors.KindStorage, op, "account lookup failed", err)
	}
	if !creds.IsActive {
		return "", nil, errors.New(errors.KindAuth, op, "account disabled")
	}
	if !CheckPassword(creds.PasswordHash, password) {
		return "", nil, errors.New(errors.KindAuth, op, "invalid username or password")
	}

	token, claims, err := m.tokens.Issue(creds.UserID, creds.Username)
	if err != nil {
		return "", nil, errors.Wrap(errors.KindAuth, op, "token issue failed", err)
	}
	err = m.sessions.Save(ctx, store.Session{
		JTI:       claims.JTI,
		UserID:    creds.UserID,
		Username:  creds.Username,
		CreatedAt: time.Now(),
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		return "", nil, errors.Wrap(errors.KindStorage, op, "session save failed", err)
	}

	m.logger.InfoTag("Auth", "user %s logged in (jti %s)", creds.Username, claims.JTI)
	return token, &Identity{
		UserID:   creds.UserID,
		Username: creds.Username,
		IsAdmin:  creds.IsAdmin,
		JTI:      claims.JTI,
	}, nil
}

// Verify validates a token and confirms its session is still active.
func (m *Manager) Verify(ctx context.Context, token string) (*Identity, error) {
	const op = "auth.verify"

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, errors.Wrap(errors.KindAuth, op, "token rejected", err)
	}
	active, err := m.sessions.IsActive(ctx, claims.JTI)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "session lookup failed", err)
	}
	if !active {
		return nil, errors.New(errors.KindAuth, op, "session revoked or expired")
	}

	identity := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		JTI:      claims.JTI,
	}
	if creds, err := m.users.FindByUsername(ctx, claims.Username); err == nil {
		if !creds.IsActive {
			return nil, errors.New(errors.KindAuth, op, "account disabled")
		}
		identity.IsAdmin = creds.IsAdmin
	}
	return identity, nil
}

// Logout revokes the token's session. Verifying the token first keeps a
// stranger from revoking arbitrary jtis.
func (m *Manager) Logout(ctx context.Context, token string) error {
	const op = "auth.logout"

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return errors.Wrap(errors.KindAuth, op, "token rejected", err)
	}
	if err := m.sessions.Revoke(ctx, claims.JTI); err != nil {
		return errors.Wrap(errors.KindStorage, op, "session revoke failed", err)
	}
	m.logger.InfoTag("Auth", "user %s logged out (jti %s)", claims.Username, claims.JTI)
	return nil
}
