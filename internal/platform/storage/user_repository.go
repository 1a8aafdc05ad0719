package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clipsync-server-go/internal/domain/auth"
	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/errors"
)

// UserSettings carries the mutable account preferences.
type UserSettings struct {
	Email           *string
	MaxHistoryItems *int
}

// UserRepository persists accounts. It backs both the auth manager's user
// source and the sync engine's retention source.
type UserRepository struct {
	db               *gorm.DB
	defaultRetention int
}

// NewUserRepository creates a repository; defaultRetention applies to users
// whose cap was never set.
func NewUserRepository(db *gorm.DB, defaultRetention int) *UserRepository {
	if defaultRetention <= 0 {
		defaultRetention = 1000
	}
	return &UserRepository{db: db, defaultRetention: defaultRetention}
}

// Create inserts a new account. Duplicate usernames fail.
func (r *UserRepository) Create(ctx context.Context, user *User) (*User, error) {
	const op = "user.create"
	if user.MaxHistoryItems <= 0 {
		user.MaxHistoryItems = r.defaultRetention
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "failed to create user", err)
	}
	return user, nil
}

// FindByUsername resolves login credentials for the auth manager.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.Credentials, error) {
	var model User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Wrap(errors.KindStorage, "user.find_by_username", "user not found", errors.ErrNotFound)
		}
		return nil, errors.Wrap(errors.KindStorage, "user.find_by_username", "failed to find user", err)
	}
	return &auth.Credentials{
		UserID:       model.ID,
		Username:     model.Username,
		PasswordHash: model.PasswordHash,
		IsAdmin:      model.IsAdmin,
		IsActive:     model.IsActive,
	}, nil
}

// GetByID loads an account row.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var model User
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Wrap(errors.KindStorage, "user.get", "user not found", errors.ErrNotFound)
		}
		return nil, errors.Wrap(errors.KindStorage, "user.get", "failed to load user", err)
	}
	return &model, nil
}

// MaxHistoryItems resolves the retention cap for the sync engine, clamped
// into the supported range.
func (r *UserRepository) MaxHistoryItems(ctx context.Context, userID int64) (int, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return r.defaultRetention, nil
		}
		return 0, err
	}
	limit := user.MaxHistoryItems
	if limit <= 0 {
		limit = r.defaultRetention
	}
	if limit < sync.MinRetention {
		limit = sync.MinRetention
	} else if limit > sync.MaxRetention {
		limit = sync.MaxRetention
	}
	return limit, nil
}

// UpdateSettings applies account preferences and returns the fresh row.
func (r *UserRepository) UpdateSettings(ctx context.Context, id int64, settings UserSettings) (*User, error) {
	const op = "user.update_settings"

	fields := map[string]interface{}{}
	if settings.Email != nil {
		fields["email"] = *settings.Email
	}
	if settings.MaxHistoryItems != nil {
		limit := *settings.MaxHistoryItems
		if limit < sync.MinRetention || limit > sync.MaxRetention {
			return nil, errors.New(errors.KindDomain, op, "max_history_items out of range")
		}
		fields["max_history_items"] = limit
	}
	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, errors.Wrap(errors.KindStorage, op, "failed to update user", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, errors.Wrap(errors.KindStorage, op, "user not found", errors.ErrNotFound)
		}
	}
	return r.GetByID(ctx, id)
}

// TouchLastLogin stamps the account's last successful login time.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "user.touch_last_login", "failed to update user", err)
	}
	return nil
}

// SetActive toggles an account on or off.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return errors.Wrap(errors.KindStorage, "user.set_active", "failed to update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(errors.KindStorage, "user.set_active", "user not found", errors.ErrNotFound)
	}
	return nil
}

// List returns every account, for the admin surface.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	var models []User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "user.list", "failed to list users", err)
	}
	users := make([]*User, len(models))
	for i := range models {
		users[i] = &models[i]
	}
	return users, nil
}

// Count reports the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.KindStorage, "user.count", "failed to count users", err)
	}
	return count, nil
}
