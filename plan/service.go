package plan

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

var requestValidator *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	PlanManager *Manager
	Logger      *zap.Logger
}

// Service is the plan API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the plan API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.PlanManager == nil {
		return nil, fmt.Errorf("nil PlanManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// SaveRequest is the payload for creating or updating a plan
type SaveRequest struct {
	Name           string `json:"name" validate:"required"`
	PriceCents     int64  `json:"priceCents" validate:"required"`
	DurationMonths int    `json:"durationMonths" validate:"required"`
}

func (s *Service) createPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := requestValidator.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	created, err := s.PlanManager.Create(ctx, CreateOption{
		Name:           req.Name,
		PriceCents:     req.PriceCents,
		DurationMonths: req.DurationMonths,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.planID(w, r)
	if !ok {
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := requestValidator.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	updated, err := s.PlanManager.Update(ctx, id, CreateOption{
		Name:           req.Name,
		PriceCents:     req.PriceCents,
		DurationMonths: req.DurationMonths,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.planID(w, r)
	if !ok {
		return
	}

	found, err := s.PlanManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.PlanManager.List(ctx)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deletePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.planID(w, r)
	if !ok {
		return
	}

	if err := s.PlanManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) planID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid plan id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the plan API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listPlans)
	r.Post("/", s.createPlan)
	r.Get("/{id}", s.getPlan)
	r.Put("/{id}", s.updatePlan)
	r.Delete("/{id}", s.deletePlan)

	return r
}
