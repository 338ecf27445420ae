package instructor

// Instructor describes a trainer, identified by the professional
// registration code (CREF)
type Instructor struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null"`
	CREF string `json:"cref" gorm:"uniqueIndex;not null"`
}
