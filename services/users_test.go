package services

import (
	"testing"

	"messenger/db"
	"messenger/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupUsersTestDB поднимает in-memory SQLite вместо PostgreSQL
func setupUsersTestDB(t *testing.T) {
	t.Helper()
	orm, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := orm.AutoMigrate(&models.User{}, &models.UserTokens{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	// Чистим таблицы от прошлых тестов: база общая на процесс
	orm.Exec("DELETE FROM user_tokens")
	orm.Exec("DELETE FROM users")
	db.ORM = orm
}

func TestRegisterAndLogin(t *testing.T) {
	setupUsersTestDB(t)

	userID, err := RegisterUser("alice", "Alice", "Liddell", "secret")
	assert.NoError(t, err)
	assert.NotZero(t, userID)

	// Повторная регистрация того же никнейма
	_, err = RegisterUser("alice", "Alice", "Liddell", "secret")
	assert.ErrorIs(t, err, ErrUserExists)

	token, loggedID, err := LoginUser("alice", "secret")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, userID, loggedID)

	resolved, err := UserIDByToken(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, resolved)
}

func TestLoginInvalidCredentials(t *testing.T) {
	setupUsersTestDB(t)

	_, err := RegisterUser("bob", "Bob", "", "hunter2")
	assert.NoError(t, err)

	_, _, err = LoginUser("bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = LoginUser("nosuchuser", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRotatesToken(t *testing.T) {
	setupUsersTestDB(t)

	_, err := RegisterUser("carol", "Carol", "", "pw")
	assert.NoError(t, err)

	first, _, err := LoginUser("carol", "pw")
	assert.NoError(t, err)
	second, _, err := LoginUser("carol", "pw")
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Старый токен инвалидирован повторным логином
	_, err = UserIDByToken(first)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLogout(t *testing.T) {
	setupUsersTestDB(t)

	_, err := RegisterUser("dave", "Dave", "", "pw")
	assert.NoError(t, err)
	token, _, err := LoginUser("dave", "pw")
	assert.NoError(t, err)

	assert.NoError(t, LogoutUser(token))
	_, err = UserIDByToken(token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.ErrorIs(t, LogoutUser(token), ErrTokenNotFound)
	assert.ErrorIs(t, LogoutUser(""), ErrTokenNotFound)
}
