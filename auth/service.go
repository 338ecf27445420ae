package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	resp "github.com/vitorfp/academia/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for the staff login router
type ServiceOptions struct {
	Auth   *Auth
	Logger *zap.Logger
}

// Service is the staff login API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the staff login API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// LoginRequest is the model of user request for login pin
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RefreshRequest carries the refresh token for re-issuing a session token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenResponse carries a fresh token pair
type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Service) requestLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	logger := s.Logger.With(zap.String("email", req.Email))

	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	// same 204 either way so the endpoint does not leak the allowlist
	if !s.Auth.AllowedStaff(req.Email) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.Auth.Request(r.Context(), req.Email, req.Email); err != nil {
		logger.Error("Unable to send login PIN",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")

	logger := s.Logger.With(zap.String("email", email))

	valid, err := s.Auth.Verify(r.Context(), email, token)
	if err != nil {
		logger.Error("Unable to verify login PIN",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	if !valid || !s.Auth.AllowedStaff(email) {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	s.writeTokenPair(w, r, logger, Claims{Email: email})
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	claim, err := s.Auth.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		s.Logger.Error("Unable to verify refresh token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	if claim == nil || !s.Auth.AllowedStaff(claim.Email) {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	s.writeTokenPair(w, r, s.Logger.With(zap.String("email", claim.Email)), Claims{Email: claim.Email})
}

func (s *Service) writeTokenPair(w http.ResponseWriter, r *http.Request, logger *zap.Logger, claims Claims) {
	jwtToken, err := s.Auth.CreateTokenFromClaims(claims)
	if err != nil {
		logger.Error("Unable to generate token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	refreshToken, err := s.Auth.CreateRefreshTokenFromClaims(claims)
	if err != nil {
		logger.Error("Unable to generate refresh token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, TokenResponse{
		Token:        jwtToken,
		RefreshToken: refreshToken,
	})
}

// Router will return the routes under the staff login API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.requestLogin)
	r.Get("/{uid}/{token}", s.handleLogin)
	r.Post("/refresh", s.handleRefresh)

	return r
}
