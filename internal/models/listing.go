package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentUnit is the period a listing's price is quoted for
type RentUnit string

const (
	RentHourly  RentUnit = "hourly"
	RentDaily   RentUnit = "daily"
	RentMonthly RentUnit = "monthly"
)

// Listing is a room offered by a provider. The booking engine only reads it.
type Listing struct {
	ID                string          `json:"id" db:"id"`
	OwnerAccountID    string          `json:"ownerAccountId" db:"owner_account_id"`
	Title             string          `json:"title" db:"title"`
	Price             decimal.Decimal `json:"price" db:"price"`
	RentUnit          RentUnit        `json:"rentUnit" db:"rent_unit"`
	Capacity          int             `json:"capacity" db:"capacity"`
	GenderRestriction string          `json:"genderRestriction" db:"gender_restriction"`
	IsActive          bool            `json:"isActive" db:"is_active"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}
