package exercise

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
	ExerciseManager *Manager
	Logger          *zap.Logger
}

// Service is the exercise catalog API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the exercise API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.ExerciseManager == nil {
		return nil, fmt.Errorf("nil ExerciseManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// SaveRequest is the payload for creating or updating a catalog entry
type SaveRequest struct {
	Name        string `json:"name" validate:"required"`
	MuscleGroup string `json:"muscleGroup"`
}

func (s *Service) createExercise(w http.ResponseWriter, r *http.Request) {
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

	created, err := s.ExerciseManager.Create(ctx, req.Name, req.MuscleGroup)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, created)
}

func (s *Service) updateExercise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.exerciseID(w, r)
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

	updated, err := s.ExerciseManager.Update(ctx, id, req.Name, req.MuscleGroup)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) getExercise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.exerciseID(w, r)
	if !ok {
		return
	}

	found, err := s.ExerciseManager.GetByID(ctx, id)
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, found)
}

func (s *Service) searchExercises(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.ExerciseManager.Search(ctx, SearchOption{
		Name:        r.URL.Query().Get("name"),
		MuscleGroup: r.URL.Query().Get("muscleGroup"),
	})
	if err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := s.exerciseID(w, r)
	if !ok {
		return
	}

	if err := s.ExerciseManager.Delete(ctx, id); err != nil {
		resp.WriteError(w, r, resp.FromFault(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) exerciseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid exercise id"))
		return 0, false
	}
	return id, true
}

// Router returns the chi Router for the exercise API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.searchExercises)
	r.Post("/", s.createExercise)
	r.Get("/{id}", s.getExercise)
	r.Put("/{id}", s.updateExercise)
	r.Delete("/{id}", s.deleteExercise)

	return r
}
