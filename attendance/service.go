package attendance

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
	AttendanceManager *Manager
	Logger            *zap.Logger
}

// Service is the attendance API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the attendance API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.AttendanceManager == nil {
		return nil, fmt.Errorf("nil AttendanceManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CheckInRequest is the payload for recording a visit. Date is
// optional and defaults to today.
type CheckInRequest struct {
	MemberID int64  `json:"memberId" validate:"required"`
	Date     string `json:"date"`
}

// UpdateRequest moves a visit record to another day
type UpdateRequest struct {
	Date string `json:"date" validate:"required"`
}

func (s *Service) checkIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	when, err := util.ParseDatePtr(req.Date)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	created, err := s.AttendanceManager.CheckIn(ctx, req.MemberID, when)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.attendanceID(w, r)
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

	when, err := util.ParseDate(req.Date)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	updated, err := s.AttendanceManager.Update(ctx, id, when)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.attendanceID(w, r)
	if !ok {
		return
	}

	found, err := s.AttendanceManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var opt ListOption
	if raw := r.URL.Query().Get("memberId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid memberId filter"))
			return
		}
		opt.MemberID = id
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		when, err := util.ParseDate(raw)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid date filter"))
			return
		}
		opt.Date = &when
	}

	results, err := s.AttendanceManager.List(ctx, opt)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.attendanceID(w, r)
	if !ok {
		return
	}

	if err := s.AttendanceManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) attendanceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid attendance id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the attendance API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listAttendance)
	r.Post("/", s.checkIn)
	r.Get("/{id}", s.getAttendance)
	r.Put("/{id}", s.updateAttendance)
	r.Delete("/{id}", s.deleteAttendance)

	return r
}
