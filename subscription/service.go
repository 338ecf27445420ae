package subscription

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
	SubscriptionManager *Manager
	Logger              *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CreateRequest is the payload for opening a subscription
type CreateRequest struct {
	MemberID  int64  `json:"memberId" validate:"required,gt=0"`
	PlanID    int64  `json:"planId" validate:"required,gt=0"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate"`
}

// UpdateRequest is the payload for the administrative correction path
type UpdateRequest struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status" validate:"required"`
}

// StatusRequest is the payload for a direct status change
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Service) createSubscription(w http.ResponseWriter, r *http.Request) {
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

	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	end, err := util.ParseDatePtr(req.EndDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.Create(ctx, CreateOption{
		MemberID:  req.MemberID,
		PlanID:    req.PlanID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) updateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subscriptionID(w, r)
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

	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	end, err := util.ParseDatePtr(req.EndDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.Update(ctx, UpdateOption{
		ID:        id,
		StartDate: start,
		EndDate:   end,
		Status:    Status(req.Status),
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subscriptionID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	if err := s.SubscriptionManager.ChangeStatus(ctx, id, Status(req.Status)); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subscriptionID(w, r)
	if !ok {
		return
	}

	if err := s.SubscriptionManager.Cancel(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.subscriptionID(w, r)
	if !ok {
		return
	}

	sub, err := s.SubscriptionManager.Get(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var opt ListOption
	if memberID := r.URL.Query().Get("memberId"); memberID != "" {
		parsed, err := strconv.ParseInt(memberID, 10, 64)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid memberId param"))
			return
		}
		opt.MemberID = parsed
	}
	if planID := r.URL.Query().Get("planId"); planID != "" {
		parsed, err := strconv.ParseInt(planID, 10, 64)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid planId param"))
			return
		}
		opt.PlanID = parsed
	}

	results, err := s.SubscriptionManager.List(ctx, opt)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) subscriptionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid subscription id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the subscription API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listSubscriptions)
	r.Post("/", s.createSubscription)
	r.Get("/{id}", s.getSubscription)
	r.Put("/{id}", s.updateSubscription)
	r.Patch("/{id}/status", s.changeStatus)
	r.Delete("/{id}", s.cancelSubscription)

	return r
}
