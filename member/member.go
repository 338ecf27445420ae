package member

import "time"

// Member describes a person enrolled at the gym
type Member struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	BirthDate time.Time `json:"birthDate" gorm:"type:date;not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	Phone     string    `json:"phone"`
}
