package types

import (
	"time"

	"github.com/google/uuid"
)

// Price level tags stored in the places table.
const (
	PriceLevelLow     = "LOW"
	PriceLevelMedium  = "MEDIUM"
	PriceLevelHigh    = "HIGH"
	PriceLevelPremium = "PREMIUM"
)

// Place is the canonical relational record for a physical place.
// The relational store is the source of truth; the vector index only
// carries a denormalized snapshot of these fields.
type Place struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Category      string     `json:"category"`
	Rating        *float64   `json:"rating,omitempty"`
	PriceLevel    *string    `json:"price_level,omitempty"`
	PriceAverage  *float64   `json:"price_average,omitempty"`
	PriceCurrency *string    `json:"price_currency,omitempty"`
	Address       *string    `json:"address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"-"`
}
