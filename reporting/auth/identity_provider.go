package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials   = errors.New("no active account found with the given credentials")
	ErrGeneratingJwt        = errors.New("error generating jwt")
	ErrUsernameAlreadyInUse = errors.New("username is already in use")
)

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type IdentityProvider interface {
	AuthMiddleware() chi.Middlewares

	Login(username, password string) (Tokens, error)

	Refresh(refreshToken string) (Tokens, error)

	CreateUser(username, password string, isAdmin bool) (uuid.UUID, error)
}

func addInitialAdminToDb(db *gorm.DB, userId uuid.UUID, username string, password []byte) error {
	user := schema.User{
		Id:       userId,
		Username: username,
		Password: password,
		IsAdmin:  true,
	}

	err := db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", username)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been added", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			result := txn.Create(&user)
			if result.Error != nil {
				slog.Error("sql error creating initial admin user", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}

	return nil
}

type requestContextKey string

const UserRequestContextKey requestContextKey = "user"

func UserFromContext(r *http.Request) (schema.User, error) {
	userUntyped := r.Context().Value(UserRequestContextKey)
	if userUntyped == nil {
		return schema.User{}, fmt.Errorf("user field not found in request context")
	}
	user, ok := userUntyped.(schema.User)
	if !ok {
		return schema.User{}, fmt.Errorf("invalid value for user field")
	}
	return user, nil
}
