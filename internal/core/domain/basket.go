package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasketStatus is our own type for basket lifecycle states to avoid "magic strings".
type BasketStatus string

const (
	BasketOpen      BasketStatus = "Open"
	BasketFrozen    BasketStatus = "Frozen"
	BasketSubmitted BasketStatus = "Submitted"
)

// BasketLine is a single priced line inside a basket. Course identifiers take
// precedence over titles when the line is described to the gateway.
type BasketLine struct {
	Quantity       int
	Currency       string
	CourseID       string
	ParentCourseID string
	Title          string
	ParentTitle    string
}

// Basket is the unit of checkout. The gateway integration only reads it;
// state transitions happen through order placement.
type Basket struct {
	ID         int64
	OwnerID    int64
	OwnerEmail string
	OwnerName  string
	Status     BasketStatus
	Total      decimal.Decimal
	Currency   string
	Lines      []BasketLine
}

// Order is the result of a successfully settled basket.
type Order struct {
	ID       int64
	Number   string
	BasketID int64
	Total    decimal.Decimal
	Currency string
	PlacedAt time.Time
}
