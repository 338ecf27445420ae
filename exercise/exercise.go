package exercise

// Exercise describes a catalog exercise available for workouts
type Exercise struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"index;not null"`
	MuscleGroup string `json:"muscleGroup" gorm:"index"`
}
