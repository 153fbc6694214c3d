package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/laschacras/cabanas-api/internal/calendar"
	"github.com/laschacras/cabanas-api/internal/models"
	"github.com/laschacras/cabanas-api/internal/publish"
	"github.com/laschacras/cabanas-api/internal/store"
)

// Publisher is the slice of the publication synchronizer the coordinator
// needs; satisfied by *publish.Publisher.
type Publisher interface {
	Publish(ctx context.Context, artifact []byte, operation, guestName string, now time.Time) (publish.State, error)
}

// Notifier mirrors accepted mutations to an announcement channel.
// Satisfied by *notifier.DiscordNotifier; may be nil.
type Notifier interface {
	NotifyReservation(operation string, r models.Reservation) error
}

// Result reports the per-stage outcome of one operation. StoreOK false
// means nothing was mutated; a failed publication never rolls the store
// back, the booking stays durable and the calendar converges on the next
// successful publication.
type Result struct {
	StoreOK   bool
	Published publish.State
	Warnings  []string
}

// Coordinator is the single mutation entry point. Every mutation runs
// validate → mutate store → render → publish under one process-wide lock.
type Coordinator struct {
	sem       chan struct{}
	store     *store.Store
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

func New(st *store.Store, pub Publisher, notif Notifier) *Coordinator {
	return &Coordinator{
		sem:       make(chan struct{}, 1),
		store:     st,
		publisher: pub,
		notifier:  notif,
		now:       time.Now,
	}
}

// Snapshot reads the current store without taking the lock. Readers may
// race writers and observe any committed state, never a torn file.
func (c *Coordinator) Snapshot() ([]models.Reservation, error) {
	return c.store.Load()
}

func (c *Coordinator) Create(ctx context.Context, r models.Reservation) (Result, error) {
	if err := c.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer c.release()

	// The store re-checks duplicates and overlaps against a fresh load, so
	// a stale interpreter snapshot cannot slip a conflict through.
	if err := c.store.Append(r); err != nil {
		return Result{}, err
	}
	c.notify("create", r)
	return c.renderAndPublish(ctx, "create", r.GuestName), nil
}

func (c *Coordinator) Modify(ctx context.Context, guestName string, patch models.ReservationPatch) (Result, error) {
	if err := c.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer c.release()

	updated, err := c.store.Modify(guestName, patch)
	if err != nil {
		return Result{}, err
	}
	c.notify("modify", updated)
	return c.renderAndPublish(ctx, "modify", updated.GuestName), nil
}

func (c *Coordinator) Delete(ctx context.Context, guestName string) (Result, error) {
	if err := c.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer c.release()

	removed, err := c.store.Delete(guestName)
	if err != nil {
		return Result{}, err
	}
	c.notify("delete", removed)
	return c.renderAndPublish(ctx, "delete", removed.GuestName), nil
}

// ReplaceImported swaps every reservation whose notes carry the tag for the
// given replacement rows, in one locked save and one publication. Used by
// the external feed importer.
func (c *Coordinator) ReplaceImported(ctx context.Context, tag string, rows []models.Reservation) (Result, error) {
	if err := c.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer c.release()

	current, err := c.store.Load()
	if err != nil {
		return Result{}, err
	}
	kept := make([]models.Reservation, 0, len(current)+len(rows))
	for _, r := range current {
		if !strings.Contains(r.Notes, tag) {
			kept = append(kept, r)
		}
	}
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return Result{}, err
		}
		// Manual bookings win over imported blocks. A conflicting row is
		// dropped here; saving it would leave the store unrenderable.
		if reason := importConflict(kept, r); reason != "" {
			log.Printf("skipping imported reservation %s: %s", r.GuestName, reason)
			continue
		}
		kept = append(kept, r)
	}
	if err := c.store.Save(kept); err != nil {
		return Result{}, err
	}
	return c.renderAndPublish(ctx, "sync", "external feed"), nil
}

func importConflict(existing []models.Reservation, candidate models.Reservation) string {
	if models.FindGuest(existing, candidate.GuestName) >= 0 {
		return "duplicate guest name"
	}
	for _, r := range existing {
		if candidate.Overlaps(r) {
			return fmt.Sprintf("overlaps %s on %s", r.GuestName, r.Cabin)
		}
	}
	return ""
}

// PublishCurrent renders and publishes the store as-is, without mutating.
// Lets the operator force convergence after earlier publish failures.
func (c *Coordinator) PublishCurrent(ctx context.Context) (Result, error) {
	if err := c.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer c.release()
	return c.renderAndPublish(ctx, "sync", "manual"), nil
}

func (c *Coordinator) renderAndPublish(ctx context.Context, operation, guestName string) Result {
	result := Result{StoreOK: true}

	reservations, err := c.store.Load()
	if err != nil {
		result.Published = publish.StateFailed
		result.Warnings = append(result.Warnings, fmt.Sprintf("no pude releer las reservas para el calendario: %v", err))
		return result
	}
	artifact, err := calendar.Render(reservations, c.now())
	if err != nil {
		// Unreachable after validation; a render failure here is a
		// consistency bug worth loud logging.
		log.Printf("calendar render failed after a validated mutation: %v", err)
		result.Published = publish.StateFailed
		result.Warnings = append(result.Warnings, "la reserva quedó guardada pero no pude generar el calendario")
		return result
	}

	state, err := c.publisher.Publish(ctx, artifact, operation, guestName, c.now())
	result.Published = state
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("la reserva quedó guardada pero el calendario público está atrasado (%v); se va a actualizar con la próxima operación", err))
	}
	return result
}

func (c *Coordinator) notify(operation string, r models.Reservation) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyReservation(operation, r); err != nil {
		log.Printf("reservation notification failed: %v", err)
	}
}

// acquire takes the process-wide store lock, giving up when the context
// expires first. All interpreter network calls happen before this point.
func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return models.ErrTimeout
	}
}

func (c *Coordinator) release() {
	<-c.sem
}
