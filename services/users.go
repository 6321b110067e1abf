package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"messenger/db"
	"messenger/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenNotFound      = errors.New("token not found")
)

func hashPassword(password string, salt []byte) string {
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash)
}

// RegisterUser создает учетную запись и возвращает ее идентификатор -
// тот самый int64, которым пользователь фигурирует в диалогах
func RegisterUser(nickname, firstName, lastName, password string) (int64, error) {
	if nickname == "" || password == "" {
		return 0, errors.New("nickname and password are required")
	}

	var alreadyExists int64
	err := db.ORM.Model(&models.User{}).Where("nickname = ?", nickname).Count(&alreadyExists).Error
	if err != nil {
		return 0, err
	}
	if alreadyExists > 0 {
		return 0, ErrUserExists
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return 0, err
	}

	user := models.User{
		Nickname:  nickname,
		FirstName: firstName,
		LastName:  lastName,
		Password:  hashPassword(password, salt),
	}
	if err := db.ORM.Create(&user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// LoginUser проверяет пароль и выдает новый токен, снося старые
func LoginUser(nickname, password string) (string, int64, error) {
	var user models.User
	err := db.ORM.Where("nickname = ?", nickname).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, ErrInvalidCredentials
	}
	if err != nil {
		return "", 0, err
	}

	parts := strings.Split(user.Password, "$")
	if len(parts) != 2 {
		return "", 0, errors.New("invalid stored password format")
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", 0, err
	}
	if hashPassword(password, salt) != user.Password {
		return "", 0, ErrInvalidCredentials
	}

	// Одновременно живет только один токен пользователя
	if err := db.ORM.Where("user_id = ?", user.ID).Delete(&models.UserTokens{}).Error; err != nil {
		return "", 0, err
	}
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", 0, err
	}
	token := hex.EncodeToString(tokenBytes)
	err = db.ORM.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error
	if err != nil {
		return "", 0, err
	}
	return token, user.ID, nil
}

// LogoutUser инвалидирует токен
func LogoutUser(token string) error {
	if token == "" {
		return ErrTokenNotFound
	}
	result := db.ORM.Where("token = ?", token).Delete(&models.UserTokens{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// UserIDByToken возвращает владельца токена
func UserIDByToken(token string) (int64, error) {
	if token == "" {
		return 0, ErrTokenNotFound
	}
	var userToken models.UserTokens
	err := db.ORM.Where("token = ?", token).First(&userToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return userToken.UserID, nil
}
