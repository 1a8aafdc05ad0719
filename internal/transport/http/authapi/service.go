package authapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipsync-server-go/internal/domain/auth"
	"clipsync-server-go/internal/platform/logging"
	"clipsync-server-go/internal/platform/storage"
	httptransport "clipsync-server-go/internal/transport/http"
)

// Service exposes account management over HTTP.
type Service struct {
	users   *storage.UserRepository
	manager *auth.Manager
	logger  *logging.Logger
}

// NewService creates the auth API service.
func NewService(users *storage.UserRepository, manager *auth.Manager, logger *logging.Logger) *Service {
	return &Service{users: users, manager: manager, logger: logger}
}

// Register wires the public routes onto api and the token-protected routes
// onto secured.
func (s *Service) Register(api, secured *gin.RouterGroup) {
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	secured.POST("/auth/logout", s.handleLogout)
	secured.GET("/auth/me", s.handleMe)
	secured.PUT("/auth/settings", s.handleSettings)

	admin := secured.Group("/auth/users")
	admin.Use(httptransport.AdminMiddleware())
	admin.GET("", s.handleListUsers)
	admin.PUT("/:id/active", s.handleSetActive)
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type settingsRequest struct {
	Email           *string `json:"email"`
	MaxHistoryItems *int    `json:"max_history_items"`
}

type userView struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email,omitempty"`
	IsAdmin         bool       `json:"is_admin"`
	IsActive        bool       `json:"is_active"`
	MaxHistoryItems int        `json:"max_history_items"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

func viewOf(user *storage.User) userView {
	return userView{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		IsAdmin:         user.IsAdmin,
		IsActive:        user.IsActive,
		MaxHistoryItems: user.MaxHistoryItems,
		LastLogin:       user.LastLogin,
	}
}

func (s *Service) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "username and password required", nil)
		return
	}
	if len(req.Password) < 6 {
		httptransport.RespondError(c, http.StatusBadRequest, "password must be at least 6 characters", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	// The first registered account becomes the administrator.
	count, err := s.users.Count(c.Request.Context())
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}

	user, err := s.users.Create(c.Request.Context(), &storage.User{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		IsAdmin:      count == 0,
		IsActive:     true,
	})
	if err != nil {
		httptransport.RespondError(c, http.StatusConflict, "username already taken", nil)
		return
	}

	s.logger.InfoTag("Auth", "registered user %s (id %d)", user.Username, user.ID)
	httptransport.RespondSuccess(c, http.StatusCreated, viewOf(user), "registered")
}

func (s *Service) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "username and password required", nil)
		return
	}

	token, identity, err := s.manager.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	if err := s.users.TouchLastLogin(c.Request.Context(), identity.UserID, time.Now()); err != nil {
		s.logger.WarnTag("Auth", "last_login update for user %d failed: %v", identity.UserID, err)
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user": gin.H{
			"id":       identity.UserID,
			"username": identity.Username,
			"is_admin": identity.IsAdmin,
		},
	}, "logged in")
}

func (s *Service) handleLogout(c *gin.Context) {
	if err := s.manager.Logout(c.Request.Context(), httptransport.RawToken(c)); err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "logged out")
}

func (s *Service) handleMe(c *gin.Context) {
	identity := httptransport.IdentityFrom(c)
	user, err := s.users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, viewOf(user), "")
}

func (s *Service) handleSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "malformed settings payload", nil)
		return
	}

	identity := httptransport.IdentityFrom(c)
	user, err := s.users.UpdateSettings(c.Request.Context(), identity.UserID, storage.UserSettings{
		Email:           req.Email,
		MaxHistoryItems: req.MaxHistoryItems,
	})
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, viewOf(user), "settings updated")
}

func (s *Service) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	views := make([]userView, len(users))
	for i, user := range users {
		views[i] = viewOf(user)
	}
	httptransport.RespondSuccess(c, http.StatusOK, views, "")
}

func (s *Service) handleSetActive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "is_active required", nil)
		return
	}
	if err := s.users.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "user updated")
}
