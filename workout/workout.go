package workout

import "time"

// Workout is a training sheet put together by an instructor for a member
type Workout struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Title        string    `json:"title" gorm:"not null"`
	CreatedOn    time.Time `json:"createdOn" gorm:"type:date;not null"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
	InstructorID int64     `json:"instructorId" gorm:"index;not null"`
	MemberID     int64     `json:"memberId" gorm:"index;not null"`
}

// Item is one exercise slot inside a workout, identified by its
// position. Positions are unique per workout but not necessarily
// contiguous: removing an item leaves a gap.
type Item struct {
	ID         int64 `json:"-" gorm:"primaryKey"`
	WorkoutID  int64 `json:"workoutId" gorm:"not null"`
	Position   int   `json:"position" gorm:"not null"`
	ExerciseID int64 `json:"exerciseId" gorm:"index;not null"`
	Sets       int   `json:"sets" gorm:"not null"`
	Reps       int   `json:"reps" gorm:"not null"`
	LoadKg     *int  `json:"loadKg"` // nil for bodyweight exercises
	RestSec    int   `json:"restSec" gorm:"not null"`
}

// TableName keeps the item table scoped to workouts
func (Item) TableName() string {
	return "workout_items"
}

// MaxPosition bounds the ordering key of an Item
const MaxPosition = 5000
