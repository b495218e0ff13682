package gormdb

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"serverless-user-api/internal/domain/user"
)

// Storage names for the users table.
const (
	UsersTable   = "users"
	ColID        = "id"
	ColName      = "name"
	ColEmail     = "email"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// UserSchema is the storage representation of a user.
// Deletes are hard deletes, so there is no gorm.DeletedAt column.
type UserSchema struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:100;not null;check:chk_users_name_not_empty,name <> ''"`
	Email     string    `gorm:"column:email;size:100;not null;uniqueIndex:idx_users_email;check:chk_users_email_not_empty,email <> ''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return UsersTable
}

// Column describes one mapped column of the users table.
type Column struct {
	Name          string
	Size          int
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Unique        bool
	SystemManaged bool // assigned by storage, never taken from input
}

// Columns is the mapping of User attributes to storage columns.
var Columns = []Column{
	{Name: ColID, PrimaryKey: true, AutoIncrement: true, NotNull: true, SystemManaged: true},
	{Name: ColName, Size: user.NameMaxLength, NotNull: true},
	{Name: ColEmail, Size: user.EmailMaxLength, NotNull: true, Unique: true},
	{Name: ColCreatedAt, SystemManaged: true},
	{Name: ColUpdatedAt, SystemManaged: true},
}

// Migrate creates or updates the users table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", UsersTable, err)
	}
	return VerifySchema(ctx, db)
}

// VerifySchema checks that the users table and every mapped column exist.
func VerifySchema(ctx context.Context, db *gorm.DB) error {
	m := db.WithContext(ctx).Migrator()

	if !m.HasTable(&UserSchema{}) {
		return fmt.Errorf("table %q does not exist", UsersTable)
	}

	for _, col := range Columns {
		if !m.HasColumn(&UserSchema{}, col.Name) {
			return fmt.Errorf("table %q is missing column %q", UsersTable, col.Name)
		}
	}

	return nil
}
