package plan

// Plan describes a membership plan sold by the gym
type Plan struct {
	ID             int64  `json:"id" gorm:"primaryKey"`
	Name           string `json:"name" gorm:"not null"`
	PriceCents     int64  `json:"priceCents" gorm:"not null"`
	DurationMonths int    `json:"durationMonths" gorm:"not null"`
}
