package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

type TokenService struct {
	userAuth auth.IdentityProvider

	// requests per minute per client ip, 0 disables the limit
	rateLimit int
}

func (s *TokenService) Routes() chi.Router {
	r := chi.NewRouter()

	if s.rateLimit > 0 {
		r.Use(httprate.Limit(
			s.rateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				utils.WriteErrorCode(w, "request was throttled, try again later", http.StatusTooManyRequests)
			}),
		))
	}

	r.Post("/", s.Obtain)
	r.Post("/refresh", s.Refresh)

	return r
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *TokenService) Obtain(w http.ResponseWriter, r *http.Request) {
	var params tokenRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}
	if err := validation.Struct(params); err != nil {
		utils.WriteError(w, utils.CodedError(err, http.StatusBadRequest))
		return
	}

	tokens, err := s.userAuth.Login(params.Username, params.Password)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, auth.ErrInvalidCredentials) {
			code = http.StatusUnauthorized
		}
		utils.WriteErrorCode(w, err.Error(), code)
		return
	}

	utils.WriteJsonResponse(w, tokens)
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func (s *TokenService) Refresh(w http.ResponseWriter, r *http.Request) {
	var params refreshRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}
	if err := validation.Struct(params); err != nil {
		utils.WriteError(w, utils.CodedError(err, http.StatusBadRequest))
		return
	}

	tokens, err := s.userAuth.Refresh(params.Refresh)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrWrongTokenType) {
			code = http.StatusUnauthorized
		}
		utils.WriteErrorCode(w, err.Error(), code)
		return
	}

	utils.WriteJsonResponse(w, tokens)
}

type UserService struct {
	userAuth auth.IdentityProvider
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)
	r.Use(auth.AdminOnly())

	r.Post("/", s.CreateUser)

	return r
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

type createUserResponse struct {
	UserId   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
}

func (s *UserService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}
	if err := validation.Struct(params); err != nil {
		utils.WriteError(w, utils.CodedError(err, http.StatusBadRequest))
		return
	}

	userId, err := s.userAuth.CreateUser(params.Username, params.Password, params.IsAdmin)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, auth.ErrUsernameAlreadyInUse) {
			code = http.StatusConflict
		}
		utils.WriteErrorCode(w, fmt.Sprintf("error creating user: %v", err), code)
		return
	}

	writeCreated(w, createUserResponse{UserId: userId, Username: params.Username, IsAdmin: params.IsAdmin})
}
