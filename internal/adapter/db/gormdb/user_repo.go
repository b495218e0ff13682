package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"serverless-user-api/internal/domain/user"
	pkgerrors "serverless-user-api/pkg/errors"
	"serverless-user-api/pkg/security"
)

// UserRepo implements the user Repository interface on top of GORM.
// It works with every dialect the application supports.
type UserRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

func toDomain(m *UserSchema) *user.User {
	return &user.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func notFound(id int64) error {
	return pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
}

func duplicateEmail(email string) error {
	return pkgerrors.NewAlreadyExistsError("user", fmt.Sprintf("email already exists: %s", email))
}

// Create inserts a new user. ID and both timestamps are assigned here.
func (r *UserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:  u.Name,
		Email: u.Email,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return nil, duplicateEmail(u.Email)
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return toDomain(&model), nil
}

// Update changes the non-empty name and email of an existing user.
// updated_at is refreshed by GORM; id and created_at are left untouched.
func (r *UserRepo) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, u.ID).Error; err != nil {
			return err
		}

		changes := make(map[string]any, 2)
		if u.Name != "" {
			changes[ColName] = u.Name
		}
		if u.Email != "" {
			changes[ColEmail] = u.Email
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&model).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&model, u.ID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			r.log.Warn("user not found for update", zap.Int64("id", u.ID))
			return nil, notFound(u.ID)
		case errors.Is(err, gorm.ErrDuplicatedKey):
			r.log.Warn("duplicate email on update", zap.Int64("id", u.ID), zap.String("email", u.Email))
			return nil, duplicateEmail(u.Email)
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", u.ID))
		return nil, pkgerrors.NewInternalError("failed to update user", err)
	}

	r.log.Info("user updated in db", zap.Int64("id", model.ID))
	return toDomain(&model), nil
}

// Delete removes a user by ID.
func (r *UserRepo) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, pkgerrors.NewValidationError("id", "must be a positive integer")
	}

	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if res.Error != nil {
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.Int64("id", id))
		return 0, pkgerrors.NewInternalError("failed to delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, notFound(id)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return id, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, notFound(id)
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}

	return toDomain(&model), nil
}

// GetByEmail retrieves a user by email. It returns nil, nil when nobody uses the address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where(ColEmail+" = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, pkgerrors.NewInternalError("failed to get user by email", err)
	}

	return toDomain(&model), nil
}

// List returns one page of users matching query (case-insensitive, on name or email)
// together with the total number of matches.
func (r *UserRepo) List(ctx context.Context, query string, page, limit int64) ([]user.User, int64, error) {
	query, err := security.ValidateSearchQuery(query)
	if err != nil {
		r.log.Warn("invalid search query", zap.String("query", query), zap.Error(err))
		return nil, 0, pkgerrors.NewValidationError("query", fmt.Sprintf("invalid search query: %v", err))
	}

	offset, ok := user.Offset(page, limit)
	if !ok {
		return nil, 0, pkgerrors.NewValidationError("page", "page is out of range")
	}

	tx := r.db.WithContext(ctx).Model(&UserSchema{})
	if query != "" {
		pattern := "%" + strings.ToLower(security.EscapeLike(query)) + "%"
		tx = tx.Where(
			"LOWER("+ColName+") LIKE ? ESCAPE '"+security.LikeEscapeChar+"' OR LOWER("+ColEmail+") LIKE ? ESCAPE '"+security.LikeEscapeChar+"'",
			pattern, pattern,
		)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		r.log.Error("failed to count users", zap.Error(err), zap.String("query", query))
		return nil, 0, pkgerrors.NewInternalError("failed to list users", err)
	}

	var models []UserSchema
	if err := tx.Order(ColID + " ASC").Offset(offset).Limit(int(limit)).Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.String("query", query), zap.Int64("page", page), zap.Int64("limit", limit))
		return nil, 0, pkgerrors.NewInternalError("failed to list users", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *toDomain(&models[i])
	}

	return users, total, nil
}
