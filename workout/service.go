package workout

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
	WorkoutManager *Manager
	Ordering       *Ordering
	Logger         *zap.Logger
}

// Service is the workout API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the workout API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.WorkoutManager == nil {
		return nil, fmt.Errorf("nil WorkoutManager is invalid")
	}
	if option.Ordering == nil {
		return nil, fmt.Errorf("nil Ordering is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CreateRequest is the payload for opening a workout sheet
type CreateRequest struct {
	Title        string `json:"title" validate:"required"`
	InstructorID int64  `json:"instructorId" validate:"required"`
	MemberID     int64  `json:"memberId" validate:"required"`
}

// UpdateRequest is the payload for updating a workout sheet
type UpdateRequest struct {
	Title        string `json:"title" validate:"required"`
	Active       bool   `json:"active"`
	InstructorID int64  `json:"instructorId" validate:"required"`
	MemberID     int64  `json:"memberId" validate:"required"`
}

// ItemRequest is the payload for adding or overwriting an item
type ItemRequest struct {
	ExerciseID int64 `json:"exerciseId" validate:"required"`
	Sets       int   `json:"sets" validate:"required"`
	Reps       int   `json:"reps" validate:"required"`
	LoadKg     *int  `json:"loadKg"`
	RestSec    int   `json:"restSec"`
}

// AddItemRequest is ItemRequest plus the slot to occupy
type AddItemRequest struct {
	Position int `json:"position" validate:"required"`
	ItemRequest
}

// RelocateRequest carries the destination of a single-item move
type RelocateRequest struct {
	NewPosition int `json:"newPosition" validate:"required"`
}

// SwapRequest names the two positions to exchange
type SwapRequest struct {
	PositionA int `json:"positionA" validate:"required"`
	PositionB int `json:"positionB" validate:"required"`
}

func (s *Service) createWorkout(w http.ResponseWriter, r *http.Request) {
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

	created, err := s.WorkoutManager.Create(ctx, CreateOption{
		Title:        req.Title,
		InstructorID: req.InstructorID,
		MemberID:     req.MemberID,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
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

	updated, err := s.WorkoutManager.Update(ctx, UpdateOption{
		ID:           id,
		Title:        req.Title,
		Active:       req.Active,
		InstructorID: req.InstructorID,
		MemberID:     req.MemberID,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getWorkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	found, err := s.WorkoutManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listWorkouts(w http.ResponseWriter, r *http.Request) {
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
	if raw := r.URL.Query().Get("instructorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid instructorId filter"))
			return
		}
		opt.InstructorID = id
	}

	results, err := s.WorkoutManager.List(ctx, opt)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	if err := s.WorkoutManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	created, err := s.Ordering.Add(ctx, AddOption{
		WorkoutID:  id,
		Position:   req.Position,
		ExerciseID: req.ExerciseID,
		Sets:       req.Sets,
		Reps:       req.Reps,
		LoadKg:     req.LoadKg,
		RestSec:    req.RestSec,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, position, ok := s.itemKey(w, r)
	if !ok {
		return
	}

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	updated, err := s.Ordering.Update(ctx, UpdateItemOption{
		WorkoutID:  id,
		Position:   position,
		ExerciseID: req.ExerciseID,
		Sets:       req.Sets,
		Reps:       req.Reps,
		LoadKg:     req.LoadKg,
		RestSec:    req.RestSec,
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) relocateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, position, ok := s.itemKey(w, r)
	if !ok {
		return
	}

	var req RelocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	if err := s.Ordering.Relocate(ctx, id, position, req.NewPosition); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	moved, err := s.Ordering.Get(ctx, id, req.NewPosition)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, moved)
}

func (s *Service) swapItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	if err := s.Ordering.Swap(ctx, id, req.PositionA, req.PositionB); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	results, err := s.Ordering.List(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, position, ok := s.itemKey(w, r)
	if !ok {
		return
	}

	found, err := s.Ordering.Get(ctx, id, position)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	results, err := s.Ordering.List(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, position, ok := s.itemKey(w, r)
	if !ok {
		return
	}

	if err := s.Ordering.Remove(ctx, id, position); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) removeAllItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.workoutID(w, r)
	if !ok {
		return
	}

	removed, err := s.Ordering.RemoveAll(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, map[string]int64{"removed": removed})
}

func (s *Service) workoutID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid workout id"))
		return 0, false
	}
	return id, true
}

func (s *Service) itemKey(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	id, ok := s.workoutID(w, r)
	if !ok {
		return 0, 0, false
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid item position"))
		return 0, 0, false
	}
	return id, position, true
}

// Router returns the chi Router for the workout API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listWorkouts)
	r.Post("/", s.createWorkout)
	r.Get("/{id}", s.getWorkout)
	r.Put("/{id}", s.updateWorkout)
	r.Delete("/{id}", s.deleteWorkout)

	r.Get("/{id}/items", s.listItems)
	r.Post("/{id}/items", s.addItem)
	r.Delete("/{id}/items", s.removeAllItems)
	r.Post("/{id}/items/swap", s.swapItems)
	r.Get("/{id}/items/{position}", s.getItem)
	r.Put("/{id}/items/{position}", s.updateItem)
	r.Delete("/{id}/items/{position}", s.removeItem)
	r.Patch("/{id}/items/{position}/position", s.relocateItem)

	return r
}
