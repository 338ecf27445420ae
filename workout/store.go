package workout

import (
	"context"
	"errors"
	"strings"

	"github.com/vitorfp/academia/exercise"

	extErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// positionConstraint is the unique constraint over (workout_id,
// position). It is declared DEFERRABLE so SwapPositions can exchange
// two keys in one statement: uniqueness is then checked at commit
// instead of per row, which would otherwise reject the swap midway.
const positionConstraint = "uq_workout_items_position"

// Store is the persistence boundary of the ordering engine
type Store interface {
	Transact(ctx context.Context, fn func(Store) error) error
	WorkoutExists(ctx context.Context, workoutID int64) (bool, error)
	ExerciseExists(ctx context.Context, exerciseID int64) (bool, error)
	PositionTaken(ctx context.Context, workoutID int64, position int) (bool, error)
	InsertItem(ctx context.Context, item *Item) error
	FetchItem(ctx context.Context, workoutID int64, position int) (*Item, error)
	UpdateItemFields(ctx context.Context, item *Item) (int64, error)
	Relocate(ctx context.Context, workoutID int64, oldPosition, newPosition int) (int64, error)
	SwapPositions(ctx context.Context, workoutID int64, positionA, positionB int) (int64, error)
	DeleteItem(ctx context.Context, workoutID int64, position int) (int64, error)
	DeleteAllItems(ctx context.Context, workoutID int64) (int64, error)
	ListItems(ctx context.Context, workoutID int64) ([]Item, error)
}

type gormStore struct {
	db *gorm.DB
}

var _ Store = &gormStore{}

// NewStore returns a gorm-backed Store, migrates the workout tables
// and installs the deferrable uniqueness constraint on item positions
func NewStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&Workout{}, &Item{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize workout.Store")
	}
	if err := db.Exec(
		"ALTER TABLE workout_items DROP CONSTRAINT IF EXISTS " + positionConstraint,
	).Error; err != nil {
		return nil, extErrors.Wrap(err, "Cannot reset position constraint")
	}
	if err := db.Exec(
		"ALTER TABLE workout_items ADD CONSTRAINT " + positionConstraint +
			" UNIQUE (workout_id, position) DEFERRABLE INITIALLY IMMEDIATE",
	).Error; err != nil {
		return nil, extErrors.Wrap(err, "Cannot install position constraint")
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) WorkoutExists(ctx context.Context, workoutID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&Workout{}).Where("id = ?", workoutID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) ExerciseExists(ctx context.Context, exerciseID int64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&exercise.Exercise{}).Where("id = ?", exerciseID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) PositionTaken(ctx context.Context, workoutID int64, position int) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&Item{}).
		Where("workout_id = ?", workoutID).
		Where("position = ?", position).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *gormStore) InsertItem(ctx context.Context, item *Item) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *gormStore) FetchItem(ctx context.Context, workoutID int64, position int) (*Item, error) {
	var item Item
	result := s.db.WithContext(ctx).
		Where("workout_id = ?", workoutID).
		Where("position = ?", position).
		First(&item)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &item, nil
}

func (s *gormStore) UpdateItemFields(ctx context.Context, item *Item) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Item{}).
		Where("workout_id = ?", item.WorkoutID).
		Where("position = ?", item.Position).
		Updates(map[string]interface{}{
			"exercise_id": item.ExerciseID,
			"sets":        item.Sets,
			"reps":        item.Reps,
			"load_kg":     item.LoadKg,
			"rest_sec":    item.RestSec,
		})
	return result.RowsAffected, result.Error
}

// Relocate moves a single row to a new position. There is no check on
// the destination: a collision is rejected by the uniqueness
// constraint at write time.
func (s *gormStore) Relocate(ctx context.Context, workoutID int64, oldPosition, newPosition int) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Item{}).
		Where("workout_id = ?", workoutID).
		Where("position = ?", oldPosition).
		Update("position", newPosition)
	return result.RowsAffected, result.Error
}

var errSwapIncomplete = errors.New("swap did not affect exactly two rows")

// SwapPositions exchanges the positions of two rows in one UPDATE, run
// in a transaction with the uniqueness check deferred to commit. When
// the statement does not hit exactly two rows the transaction rolls
// back, so a concurrent removal leaves the workout untouched.
func (s *gormStore) SwapPositions(ctx context.Context, workoutID int64, positionA, positionB int) (int64, error) {
	var rows int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET CONSTRAINTS " + positionConstraint + " DEFERRED").Error; err != nil {
			return err
		}
		result := tx.Model(&Item{}).
			Where("workout_id = ?", workoutID).
			Where("position IN (?, ?)", positionA, positionB).
			Update("position", gorm.Expr(
				"CASE WHEN position = ? THEN ? ELSE ? END",
				positionA, positionB, positionA,
			))
		if result.Error != nil {
			return result.Error
		}
		rows = result.RowsAffected
		if rows != 2 {
			return errSwapIncomplete
		}
		return nil
	})
	if errors.Is(err, errSwapIncomplete) {
		// rolled back on purpose, report the count to the caller
		return rows, nil
	}
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func (s *gormStore) DeleteItem(ctx context.Context, workoutID int64, position int) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("workout_id = ?", workoutID).
		Where("position = ?", position).
		Delete(&Item{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) DeleteAllItems(ctx context.Context, workoutID int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("workout_id = ?", workoutID).
		Delete(&Item{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) ListItems(ctx context.Context, workoutID int64) ([]Item, error) {
	results := make([]Item, 0, 1)
	result := s.db.WithContext(ctx).
		Where("workout_id = ?", workoutID).
		Order("position asc").
		Find(&results)
	if result.Error != nil {
		return nil, result.Error
	}
	return results, nil
}

// IsUniqueViolation reports whether the store rejected a write because
// of the position uniqueness constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
