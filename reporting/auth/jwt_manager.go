package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

const (
	userIdKey    = "user_id"
	tokenTypeKey = "token_type"

	AccessToken  = "access"
	RefreshToken = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrWrongTokenType = errors.New("token cannot be used for this request")
)

type JwtManager struct {
	auth       *jwtauth.JWTAuth
	accessTtl  time.Duration
	refreshTtl time.Duration
}

func NewJwtManager(secret []byte, accessTtl, refreshTtl time.Duration) *JwtManager {
	return &JwtManager{auth: jwtauth.New("HS256", secret, nil), accessTtl: accessTtl, refreshTtl: refreshTtl}
}

func (m *JwtManager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(m.auth)
}

// Authenticator rejects requests without a valid access token. Failures are
// rendered with the standard error envelope.
func (m *JwtManager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				detail := "authentication credentials were not provided or are invalid"
				if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					detail = ErrInvalidToken.Error()
				}
				utils.WriteErrorCode(w, detail, http.StatusUnauthorized)
				return
			}
			if claims[tokenTypeKey] != AccessToken {
				utils.WriteErrorCode(w, ErrWrongTokenType.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

func (m *JwtManager) createToken(userId uuid.UUID, tokenType string, exp time.Duration) (string, error) {
	claims := map[string]interface{}{
		userIdKey:    userId.String(),
		tokenTypeKey: tokenType,
		"jti":        uuid.NewString(),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, exp)

	_, token, err := m.auth.Encode(claims)
	if err != nil {
		slog.Error("error generating jwt", "error", err)
		return "", fmt.Errorf("error generating %v token: %w", tokenType, err)
	}
	return token, nil
}

func (m *JwtManager) CreateAccessToken(userId uuid.UUID) (string, error) {
	return m.createToken(userId, AccessToken, m.accessTtl)
}

func (m *JwtManager) CreateRefreshToken(userId uuid.UUID) (string, error) {
	return m.createToken(userId, RefreshToken, m.refreshTtl)
}

// ParseRefreshToken verifies a refresh token and returns the user it was
// issued to.
func (m *JwtManager) ParseRefreshToken(tokenString string) (uuid.UUID, error) {
	token, err := jwtauth.VerifyToken(m.auth, tokenString)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	if claims[tokenTypeKey] != RefreshToken {
		return uuid.Nil, ErrWrongTokenType
	}

	return userIdFromClaims(claims)
}

func userIdFromClaims(claims map[string]interface{}) (uuid.UUID, error) {
	value, ok := claims[userIdKey].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing %v claim", ErrInvalidToken, userIdKey)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id '%v'", ErrInvalidToken, value)
	}
	return id, nil
}

func UserIdFromContext(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, fmt.Errorf("error retrieving auth claims: %w", err)
	}
	return userIdFromClaims(claims)
}
