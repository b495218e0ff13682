package gormdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"serverless-user-api/internal/domain/user"
	pkgerrors "serverless-user-api/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func setupRepo(t *testing.T) *UserRepo {
	return NewUserRepo(setupTestDB(t), zaptest.NewLogger(t))
}

func seed(t *testing.T, repo *UserRepo, users ...user.User) []*user.User {
	t.Helper()

	created := make([]*user.User, 0, len(users))
	for i := range users {
		u, err := repo.Create(context.Background(), &users[i])
		require.NoError(t, err)
		created = append(created, u)
	}
	return created
}

func TestUserRepo_Create(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &user.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)

	assert.Positive(t, created.ID)
	assert.Equal(t, "Ann", created.Name)
	assert.Equal(t, "ann@example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	second, err := repo.Create(ctx, &user.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, created.ID)
}

func TestUserRepo_Create_IgnoresCallerID(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(context.Background(), &user.User{ID: 42, Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, int64(42), created.ID)
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	_, err := repo.Create(ctx, &user.User{Name: "Other", Email: "ann@example.com"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	_, total, err := repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestUserRepo_Create_Nil(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestUserRepo_GetByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Email, got.Email)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = repo.GetByID(ctx, created.ID+100)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUserRepo_GetByEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	got, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepo_Update(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	time.Sleep(10 * time.Millisecond)

	updated, err := repo.Update(ctx, &user.User{ID: created.ID, Name: "Annie"})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "ann@example.com", updated.Email)
	assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	updated, err = repo.Update(ctx, &user.User{ID: created.ID, Email: "annie@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "annie@example.com", updated.Email)
}

func TestUserRepo_Update_Errors(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	users := seed(t, repo,
		user.User{Name: "Ann", Email: "ann@example.com"},
		user.User{Name: "Bob", Email: "bob@example.com"},
	)

	_, err := repo.Update(ctx, &user.User{ID: 999, Name: "Ghost"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = repo.Update(ctx, &user.User{ID: users[1].ID, Email: "ann@example.com"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	bob, err := repo.GetByID(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", bob.Email)
}

func TestUserRepo_Delete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	id, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = repo.GetByID(ctx, created.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = repo.Delete(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = repo.Delete(ctx, 0)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestUserRepo_Delete_FreesEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, user.User{Name: "Ann", Email: "ann@example.com"})[0]

	_, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	_, err = repo.Create(ctx, &user.User{Name: "Ann Again", Email: "ann@example.com"})
	assert.NoError(t, err)
}

func TestUserRepo_List_Search(t *testing.T) {
	repo := setupRepo(t)
	seed(t, repo,
		user.User{Name: "John Doe", Email: "john@example.com"},
		user.User{Name: "Jane Smith", Email: "jane@example.com"},
		user.User{Name: "Admin User", Email: "admin@example.com"},
		user.User{Name: "Percent 100%", Email: "percent@example.com"},
		user.User{Name: "under_score", Email: "underscore@example.com"},
	)

	tests := []struct {
		name        string
		query       string
		expectError bool
		expectCount int64
	}{
		{name: "match on name", query: "john", expectCount: 1},
		{name: "case insensitive", query: "JANE", expectCount: 1},
		{name: "match on email", query: "admin@", expectCount: 1},
		{name: "empty query returns all", query: "", expectCount: 5},
		{name: "common substring", query: "example.com", expectCount: 5},
		{name: "percent is literal", query: "100%", expectCount: 1},
		{name: "underscore is literal", query: "r_s", expectCount: 1},
		{name: "no match", query: "zzz", expectCount: 0},
		{name: "union injection", query: "john UNION SELECT * FROM users", expectError: true},
		{name: "or condition", query: "john OR 1=1", expectError: true},
		{name: "comment", query: "john--", expectError: true},
		{name: "statement separator", query: "john; DROP TABLE users", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, total, err := repo.List(context.Background(), tt.query, 1, 10)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectCount, total)
			assert.Len(t, users, int(tt.expectCount))
		})
	}
}

func TestUserRepo_List_Pagination(t *testing.T) {
	repo := setupRepo(t)
	for i := 1; i <= 12; i++ {
		seed(t, repo, user.User{Name: fmt.Sprintf("User %02d", i), Email: fmt.Sprintf("user%02d@example.com", i)})
	}

	page1, total, err := repo.List(context.Background(), "", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page1, 5)
	assert.Equal(t, "User 01", page1[0].Name)

	page3, total, err := repo.List(context.Background(), "", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page3, 2)
	assert.Equal(t, "User 11", page3[0].Name)
	assert.Less(t, page3[0].ID, page3[1].ID)

	beyond, total, err := repo.List(context.Background(), "", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Empty(t, beyond)

	_, _, err = repo.List(context.Background(), "", 922337203685477581, 100)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestVerifySchema(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, VerifySchema(context.Background(), db))

	require.NoError(t, db.Migrator().DropTable(&UserSchema{}))
	err := VerifySchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), UsersTable)
}

func TestColumns_MatchSchema(t *testing.T) {
	db := setupTestDB(t)

	stmt := &gorm.Statement{DB: db}
	require.NoError(t, stmt.Parse(&UserSchema{}))
	assert.Equal(t, UsersTable, stmt.Schema.Table)

	for _, col := range Columns {
		field := stmt.Schema.LookUpField(col.Name)
		require.NotNil(t, field, col.Name)
		assert.Equal(t, col.PrimaryKey, field.PrimaryKey, col.Name)
		assert.Equal(t, col.NotNull || col.PrimaryKey, field.NotNull || field.PrimaryKey, col.Name)
		if col.Size > 0 {
			assert.Equal(t, col.Size, field.Size, col.Name)
		}
	}
	assert.Len(t, stmt.Schema.DBNames, len(Columns))
}
