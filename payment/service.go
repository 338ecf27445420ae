package payment

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
	PaymentManager *Manager
	Logger         *zap.Logger
}

// Service is the payment API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the payment API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.PaymentManager == nil {
		return nil, fmt.Errorf("nil PaymentManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CreateRequest is the payload for opening a payment
type CreateRequest struct {
	SubscriptionID int64  `json:"subscriptionId" validate:"required,gt=0"`
	Period         string `json:"period" validate:"required"`
	AmountCents    int64  `json:"amountCents" validate:"required,gt=0"`
	DueDate        string `json:"dueDate" validate:"required"`
	Status         string `json:"status"`
}

// UpdateRequest is the payload for overwriting a payment
type UpdateRequest struct {
	SubscriptionID int64  `json:"subscriptionId" validate:"required,gt=0"`
	Period         string `json:"period" validate:"required"`
	AmountCents    int64  `json:"amountCents" validate:"required,gt=0"`
	DueDate        string `json:"dueDate" validate:"required"`
	Status         string `json:"status" validate:"required"`
	PaidOn         string `json:"paidOn"`
}

// StatusRequest is the payload for a direct status change
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SettleRequest is the payload for settling a payment. An empty date
// means today.
type SettleRequest struct {
	PaidOn string `json:"paidOn"`
}

func (s *Service) createPayment(w http.ResponseWriter, r *http.Request) {
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

	period, err := util.ParseMonth(req.Period)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	due, err := util.ParseDate(req.DueDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	p, err := s.PaymentManager.Create(ctx, CreateOption{
		SubscriptionID: req.SubscriptionID,
		Period:         period,
		AmountCents:    req.AmountCents,
		DueDate:        due,
		Status:         Status(req.Status),
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) updatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.paymentID(w, r)
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

	period, err := util.ParseMonth(req.Period)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	due, err := util.ParseDate(req.DueDate)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	paidOn, err := util.ParseDatePtr(req.PaidOn)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	p, err := s.PaymentManager.Update(ctx, UpdateOption{
		ID:             id,
		SubscriptionID: req.SubscriptionID,
		Period:         period,
		AmountCents:    req.AmountCents,
		DueDate:        due,
		Status:         Status(req.Status),
		PaidOn:         paidOn,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.paymentID(w, r)
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

	if err := s.PaymentManager.ChangeStatus(ctx, id, Status(req.Status)); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) settlePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.paymentID(w, r)
	if !ok {
		return
	}

	var req SettleRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			resp.WriteError(w, r, resp.ErrInvalidJson())
			return
		}
	}

	paidOn, err := util.ParseDatePtr(req.PaidOn)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	p, err := s.PaymentManager.Settle(ctx, id, paidOn)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) deletePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.paymentID(w, r)
	if !ok {
		return
	}

	if err := s.PaymentManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) getPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.paymentID(w, r)
	if !ok {
		return
	}

	p, err := s.PaymentManager.Get(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var opt ListOption
	if subID := r.URL.Query().Get("subscriptionId"); subID != "" {
		parsed, err := strconv.ParseInt(subID, 10, 64)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid subscriptionId param"))
			return
		}
		opt.SubscriptionID = parsed
	}
	opt.Status = Status(r.URL.Query().Get("status"))

	results, err := s.PaymentManager.List(ctx, opt)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) listOverdue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.PaymentManager.ListOverdue(ctx)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) paymentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid payment id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the payment API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listPayments)
	r.Post("/", s.createPayment)
	r.Get("/overdue", s.listOverdue)
	r.Get("/{id}", s.getPayment)
	r.Put("/{id}", s.updatePayment)
	r.Patch("/{id}/status", s.changeStatus)
	r.Post("/{id}/settle", s.settlePayment)
	r.Delete("/{id}", s.deletePayment)

	return r
}
