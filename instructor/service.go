package instructor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	resp "github.com/vitorfp/academia/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	InstructorManager *Manager
	Logger            *zap.Logger
}

// Service is the instructor API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the instructor API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.InstructorManager == nil {
		return nil, fmt.Errorf("nil InstructorManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// SaveRequest is the payload for creating or updating an instructor
type SaveRequest struct {
	Name string `json:"name" validate:"required"`
	CREF string `json:"cref" validate:"required"`
}

func (s *Service) createInstructor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	created, err := s.InstructorManager.Create(ctx, req.Name, req.CREF)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateInstructor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.instructorID(w, r)
	if !ok {
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	updated, err := s.InstructorManager.Update(ctx, id, req.Name, req.CREF)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getInstructor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.instructorID(w, r)
	if !ok {
		return
	}

	found, err := s.InstructorManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listInstructors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.InstructorManager.List(ctx)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteInstructor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.instructorID(w, r)
	if !ok {
		return
	}

	if err := s.InstructorManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) instructorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid instructor id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the instructor API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listInstructors)
	r.Post("/", s.createInstructor)
	r.Get("/{id}", s.getInstructor)
	r.Put("/{id}", s.updateInstructor)
	r.Delete("/{id}", s.deleteInstructor)

	return r
}
