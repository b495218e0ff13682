package user

import (
	"context"

	domain "serverless-user-api/internal/domain/user"
)

// Repository defines the interface for user data access operations.
// The gorm adapter and the redis-backed decorator both satisfy it.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)                        // Create a new user
	GetByID(ctx context.Context, id int64) (*domain.User, error)                             // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error)                      // Retrieve user by email, nil if absent
	Update(ctx context.Context, u *domain.User) (*domain.User, error)                        // Update existing user
	Delete(ctx context.Context, id int64) (int64, error)                                     // Delete user by ID
	List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error) // List users with pagination and search
}

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*User, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)
}
