package calendar

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/laschacras/cabanas-api/internal/models"
)

const (
	// ProdID identifies this system in the published artifact. Changing it
	// invalidates subscribers' event caches, so treat it as frozen.
	ProdID = "-//Cabanas Las Chacras//Reservations//EN"

	uidSuffix  = "@cabanaslaschacras.ar"
	dateFormat = "20060102"
)

// Render turns the store contents into an iCalendar document. It is pure
// and deterministic: rendering the same records with the same timestamp
// yields byte-identical output. now is only used for DTSTAMP.
//
// Inputs that violate the store invariants are rejected; after coordinator
// validation that path is unreachable and indicates a consistency bug.
func Render(reservations []models.Reservation, now time.Time) ([]byte, error) {
	if err := checkInvariants(reservations); err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProdID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	for _, r := range reservations {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, UID(r))
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.Set(dateProp(ical.PropDateTimeStart, r.CheckIn))
		event.Props.Set(dateProp(ical.PropDateTimeEnd, r.CheckOut()))
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("Reserva: %s - %s", r.GuestName, r.Cabin))
		event.Props.SetText(ical.PropDescription, description(r))
		event.Props.SetText(ical.PropLocation, fmt.Sprintf("%s - Cabaña", r.Cabin))
		event.Props.SetText(ical.PropStatus, "CONFIRMED")
		event.Props.SetText(ical.PropTransparency, "OPAQUE")
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// UID derives a stable event identifier from the guest name and check-in
// date, so re-rendering the same booking keeps the same UID.
func UID(r models.Reservation) string {
	sum := sha1.Sum([]byte(strings.ToLower(r.GuestName) + "|" + r.CheckIn.Format(models.DateLayout)))
	return hex.EncodeToString(sum[:]) + uidSuffix
}

// dateProp builds an all-day VALUE=DATE property. DTEND is exclusive, one
// day past the last occupied night.
func dateProp(name string, day time.Time) *ical.Prop {
	p := ical.NewProp(name)
	p.SetValueType(ical.ValueDate)
	p.Value = day.Format(dateFormat)
	return p
}

func description(r models.Reservation) string {
	parts := []string{
		fmt.Sprintf("Huésped: %s", r.GuestName),
		fmt.Sprintf("Cabaña: %s", r.Cabin),
		fmt.Sprintf("Noches: %d", r.TotalNights),
		fmt.Sprintf("Total: $%g", r.TotalPrice),
		fmt.Sprintf("Seña: $%g", r.Deposit),
	}
	if strings.TrimSpace(r.Phone) != "" {
		parts = append(parts, fmt.Sprintf("Teléfono: %s", r.Phone))
	}
	if strings.TrimSpace(r.Notes) != "" {
		parts = append(parts, fmt.Sprintf("Notas: %s", r.Notes))
	}
	return strings.Join(parts, "\n")
}

func checkInvariants(reservations []models.Reservation) error {
	for i, r := range reservations {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", models.ErrRenderInvariant, r.GuestName, err)
		}
		for _, other := range reservations[i+1:] {
			if strings.EqualFold(r.GuestName, other.GuestName) {
				return fmt.Errorf("%w: duplicate guest %s", models.ErrRenderInvariant, r.GuestName)
			}
			if r.Overlaps(other) {
				return fmt.Errorf("%w: %s and %s overlap on %s",
					models.ErrRenderInvariant, r.GuestName, other.GuestName, r.Cabin)
			}
		}
	}
	return nil
}
