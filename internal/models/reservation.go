package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wall-date format used in the store file and in all
// operator-facing output. Reservations carry no time-of-day component.
const DateLayout = "2006-01-02"

type Reservation struct {
	GuestName   string    `json:"guest_name"`
	CheckIn     time.Time `json:"check_in_date"`
	TotalPrice  float64   `json:"total_price"`
	TotalNights int       `json:"total_nights"`
	Cabin       string    `json:"cabin"`
	Deposit     float64   `json:"deposit"`
	Phone       string    `json:"phone,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// CheckOut is the exclusive departure date, one day past the last occupied night.
func (r Reservation) CheckOut() time.Time {
	return r.CheckIn.AddDate(0, 0, r.TotalNights)
}

// Overlaps reports whether two reservations occupy the same cabin on at
// least one shared night.
func (r Reservation) Overlaps(other Reservation) bool {
	if !strings.EqualFold(r.Cabin, other.Cabin) {
		return false
	}
	return r.CheckIn.Before(other.CheckOut()) && other.CheckIn.Before(r.CheckOut())
}

func (r Reservation) Validate() error {
	if strings.TrimSpace(r.GuestName) == "" {
		return fmt.Errorf("%w: guest name is required", ErrValidation)
	}
	if r.CheckIn.IsZero() {
		return fmt.Errorf("%w: check-in date is required", ErrValidation)
	}
	if r.TotalNights < 1 {
		return fmt.Errorf("%w: total nights must be at least 1", ErrValidation)
	}
	if r.TotalPrice < 0 {
		return fmt.Errorf("%w: total price cannot be negative", ErrValidation)
	}
	if r.Deposit < 0 {
		return fmt.Errorf("%w: deposit cannot be negative", ErrValidation)
	}
	if r.Deposit > r.TotalPrice {
		return fmt.Errorf("%w: deposit cannot exceed total price", ErrValidation)
	}
	if strings.TrimSpace(r.Cabin) == "" {
		return fmt.Errorf("%w: cabin is required", ErrValidation)
	}
	return nil
}

// ReservationPatch carries the fields of a modify intent. Nil fields keep
// the existing value.
type ReservationPatch struct {
	GuestName   *string
	CheckIn     *time.Time
	TotalPrice  *float64
	TotalNights *int
	Cabin       *string
	Deposit     *float64
	Phone       *string
	Notes       *string
}

func (p ReservationPatch) Apply(r Reservation) Reservation {
	if p.GuestName != nil {
		r.GuestName = *p.GuestName
	}
	if p.CheckIn != nil {
		r.CheckIn = *p.CheckIn
	}
	if p.TotalPrice != nil {
		r.TotalPrice = *p.TotalPrice
	}
	if p.TotalNights != nil {
		r.TotalNights = *p.TotalNights
	}
	if p.Cabin != nil {
		r.Cabin = *p.Cabin
	}
	if p.Deposit != nil {
		r.Deposit = *p.Deposit
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

// Cabins returns the distinct cabin labels present in the given records,
// in first-seen order. The valid label set is data-driven, never hard-coded.
func Cabins(reservations []Reservation) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, r := range reservations {
		key := strings.ToLower(r.Cabin)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		labels = append(labels, r.Cabin)
	}
	return labels
}

// FindGuest returns the index of the reservation whose guest name matches
// case-insensitively, or -1.
func FindGuest(reservations []Reservation, guestName string) int {
	for i, r := range reservations {
		if strings.EqualFold(r.GuestName, guestName) {
			return i
		}
	}
	return -1
}
