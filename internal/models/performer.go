package models

import "time"

type Performer struct {
	ID           int64     `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	PricePerHour int64     `yaml:"price_per_hour" json:"price_per_hour"`
	IsActive     bool      `yaml:"is_active" json:"is_active"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
}
