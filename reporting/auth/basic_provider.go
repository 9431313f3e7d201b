package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils"
	"github.com/artesarh/rpb/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

type BasicIdentityProvider struct {
	jwtManager *JwtManager
	db         *gorm.DB
	auditLog   AuditLogger
}

type BasicProviderArgs struct {
	Secret          []byte
	AdminUsername   string
	AdminPassword   string
	AccessTokenTtl  time.Duration
	RefreshTokenTtl time.Duration
}

func NewBasicIdentityProvider(db *gorm.DB, auditLog AuditLogger, args BasicProviderArgs) (IdentityProvider, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(args.AdminPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error encrypting admin password: %w", err)
	}

	err = addInitialAdminToDb(db, uuid.New(), args.AdminUsername, hashedPwd)
	if err != nil {
		return nil, fmt.Errorf("error adding inital admin to db: %w", err)
	}

	return &BasicIdentityProvider{
		jwtManager: NewJwtManager(args.Secret, args.AccessTokenTtl, args.RefreshTokenTtl),
		db:         db,
		auditLog:   auditLog,
	}, nil
}

func (auth *BasicIdentityProvider) addUserToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			userId, err := UserIdFromContext(r)
			if err != nil {
				utils.WriteErrorCode(w, err.Error(), http.StatusUnauthorized)
				return
			}

			user, err := schema.GetUser(userId, auth.db)
			if err != nil {
				if errors.Is(err, schema.ErrUserNotFound) {
					utils.WriteErrorCode(w, "user not found", http.StatusUnauthorized)
					return
				}
				utils.WriteErrorCode(w, fmt.Sprintf("unable to find user %v: %v", userId, err), http.StatusInternalServerError)
				return
			}

			reqCtx := context.WithValue(r.Context(), UserRequestContextKey, user)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}

		return http.HandlerFunc(handler)
	}
}

func (auth *BasicIdentityProvider) AuthMiddleware() chi.Middlewares {
	return chi.Middlewares{auth.jwtManager.Verifier(), auth.jwtManager.Authenticator(), auth.addUserToContext(), auth.auditLog.Middleware}
}

func (auth *BasicIdentityProvider) Login(username, password string) (Tokens, error) {
	user, err := schema.GetUserByUsername(username, auth.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(password)); err != nil {
		return Tokens{}, ErrInvalidCredentials
	}

	access, err := auth.jwtManager.CreateAccessToken(user.Id)
	if err != nil {
		return Tokens{}, ErrGeneratingJwt
	}
	refresh, err := auth.jwtManager.CreateRefreshToken(user.Id)
	if err != nil {
		return Tokens{}, ErrGeneratingJwt
	}

	slog.Info("user logged in", "user_id", user.Id, "code", logging.AUTH)

	return Tokens{Access: access, Refresh: refresh}, nil
}

func (auth *BasicIdentityProvider) Refresh(refreshToken string) (Tokens, error) {
	userId, err := auth.jwtManager.ParseRefreshToken(refreshToken)
	if err != nil {
		return Tokens{}, err
	}

	if _, err := schema.GetUser(userId, auth.db); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return Tokens{}, ErrInvalidToken
		}
		return Tokens{}, err
	}

	access, err := auth.jwtManager.CreateAccessToken(userId)
	if err != nil {
		return Tokens{}, ErrGeneratingJwt
	}
	return Tokens{Access: access}, nil
}

func (auth *BasicIdentityProvider) CreateUser(username, password string, isAdmin bool) (uuid.UUID, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("error encrypting password: %w", err)
	}

	newUser := schema.User{Id: uuid.New(), Username: username, Password: hashedPwd, IsAdmin: isAdmin}

	err = auth.db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", username)
		if result.Error != nil {
			slog.Error("sql error checking for existing username", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			return ErrUsernameAlreadyInUse
		}

		result = txn.Create(&newUser)
		if result.Error != nil {
			slog.Error("sql error creating new user entry", "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		return nil
	})

	if err != nil {
		return uuid.UUID{}, fmt.Errorf("error creating new user: %w", err)
	}

	slog.Info("created user", "user_id", newUser.Id, "is_admin", isAdmin, "code", logging.AUTH)

	return newUser.Id, nil
}
