package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/emersion/go-ical"

	"github.com/laschacras/cabanas-api/internal/coordinator"
	"github.com/laschacras/cabanas-api/internal/models"
)

const (
	// importTag marks rows owned by the importer; each sync replaces every
	// row carrying it, so stale external blocks disappear.
	importTag = "[airbnb-sync]"

	importedGuestPrefix = "Airbnb Guest"
	importedCabin       = "Airbnb"
)

// Syncer periodically imports an external Airbnb availability feed into the
// store, so externally blocked nights show up on the published calendar.
type Syncer struct {
	url        string
	coord      *coordinator.Coordinator
	interval   time.Duration
	httpClient *http.Client
}

func NewSyncer(url string, coord *coordinator.Coordinator, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Syncer{
		url:        url,
		coord:      coord,
		interval:   interval,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run syncs once immediately and then on every tick until the context is
// cancelled. Sync failures are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("airbnb sync failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Syncer) SyncOnce(ctx context.Context) error {
	data, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	rows, err := parseBlockedPeriods(data)
	if err != nil {
		return err
	}
	if _, err := s.coord.ReplaceImported(ctx, importTag, rows); err != nil {
		return fmt.Errorf("replace imported rows: %w", err)
	}
	log.Printf("airbnb sync imported %d blocked periods", len(rows))
	return nil
}

func (s *Syncer) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch airbnb calendar: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch airbnb calendar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch airbnb calendar: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type blockedPeriod struct {
	start   time.Time
	end     time.Time
	summary string
}

// parseBlockedPeriods turns the feed's VEVENT blocks into importer-owned
// reservations. Real feeds carry overlapping "Reserved" and "Not available"
// events for the same nights, so overlapping and adjacent periods are
// coalesced first; the stored rows must never conflict with each other.
// Guest names carry the start date so they stay unique.
func parseBlockedPeriods(data []byte) ([]models.Reservation, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("parse airbnb calendar: %w", err)
	}

	var periods []blockedPeriod
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		start, err := eventDate(child, ical.PropDateTimeStart)
		if err != nil {
			return nil, err
		}
		end, err := eventDate(child, ical.PropDateTimeEnd)
		if err != nil {
			return nil, err
		}
		if !end.After(start) {
			continue
		}
		summary := ""
		if p := child.Props.Get(ical.PropSummary); p != nil {
			summary = p.Value
		}
		periods = append(periods, blockedPeriod{start: start, end: end, summary: summary})
	}

	var rows []models.Reservation
	for _, p := range coalesce(periods) {
		rows = append(rows, models.Reservation{
			GuestName:   fmt.Sprintf("%s %s", importedGuestPrefix, p.start.Format(models.DateLayout)),
			CheckIn:     p.start,
			TotalNights: int(p.end.Sub(p.start).Hours() / 24),
			Cabin:       importedCabin,
			Notes:       fmt.Sprintf("%s %s", importTag, p.summary),
		})
	}
	return rows, nil
}

// coalesce merges periods that overlap or touch into single blocked
// stretches, earliest first.
func coalesce(periods []blockedPeriod) []blockedPeriod {
	sort.Slice(periods, func(i, j int) bool { return periods[i].start.Before(periods[j].start) })

	var merged []blockedPeriod
	for _, p := range periods {
		if n := len(merged); n > 0 && !p.start.After(merged[n-1].end) {
			last := &merged[n-1]
			if p.end.After(last.end) {
				last.end = p.end
			}
			if last.summary == "" {
				last.summary = p.summary
			}
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

func eventDate(event *ical.Component, prop string) (time.Time, error) {
	p := event.Props.Get(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("parse airbnb calendar: event missing %s", prop)
	}
	for _, layout := range []string{"20060102", "20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, p.Value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse airbnb calendar: bad %s value %q", prop, p.Value)
}
