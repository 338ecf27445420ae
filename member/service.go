package member

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	resp "github.com/vitorfp/academia/response"
	"github.com/vitorfp/academia/util"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	MemberManager *Manager
	Logger        *zap.Logger
}

// Service is the member API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the member API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.MemberManager == nil {
		return nil, fmt.Errorf("nil MemberManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CreateRequest is the payload for enrolling a member
type CreateRequest struct {
	Name      string `json:"name" validate:"required"`
	BirthDate string `json:"birthDate" validate:"required"`
	Phone     string `json:"phone"`
}

// UpdateRequest is the payload for updating a member
type UpdateRequest struct {
	Name      string `json:"name" validate:"required"`
	BirthDate string `json:"birthDate" validate:"required"`
	Active    bool   `json:"active"`
	Phone     string `json:"phone"`
}

func (s *Service) createMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	birth, err := util.ParseDate(req.BirthDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	created, err := s.MemberManager.Create(ctx, CreateOption{
		Name:      req.Name,
		BirthDate: birth,
		Phone:     req.Phone,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	birth, err := util.ParseDate(req.BirthDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	updated, err := s.MemberManager.Update(ctx, UpdateOption{
		ID:        id,
		Name:      req.Name,
		BirthDate: birth,
		Active:    req.Active,
		Phone:     req.Phone,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	found, err := s.MemberManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.MemberManager.List(ctx)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	if err := s.MemberManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) memberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid member id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the member API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listMembers)
	r.Post("/", s.createMember)
	r.Get("/{id}", s.getMember)
	r.Put("/{id}", s.updateMember)
	r.Delete("/{id}", s.deleteMember)

	return r
}
