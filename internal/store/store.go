package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/laschacras/cabanas-api/internal/models"
)

var header = []string{
	"guest_name", "check_in_date", "total_price", "total_nights",
	"cabin", "deposit", "phone", "notes",
}

// Store is the authoritative record of reservations on a single flat CSV
// file. It performs no locking of its own; the coordinator serializes all
// writers. Saves replace the file atomically, so readers never observe a
// torn file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads every reservation, in file order. A missing file is an empty
// store.
func (s *Store) Load() ([]models.Reservation, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreCorrupt, err)
	}
	for i, name := range header {
		if head[i] != name {
			return nil, fmt.Errorf("%w: unexpected header column %q, want %q", models.ErrStoreCorrupt, head[i], name)
		}
	}

	var reservations []models.Reservation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrStoreCorrupt, line, err)
		}
		r, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrStoreCorrupt, line, err)
		}
		reservations = append(reservations, r)
	}
	return reservations, nil
}

// Save replaces the file contents atomically: write to a temporary sibling,
// fsync, rename.
func (s *Store) Save(reservations []models.Reservation) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".reservations-*.csv")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write store header: %w", err)
	}
	for _, r := range reservations {
		if err := writer.Write(formatRecord(r)); err != nil {
			tmp.Close()
			return fmt.Errorf("write store record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	// CreateTemp opens 0600; the file must stay readable by other local tooling.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// Append adds a reservation after checking it against the current records.
func (s *Store) Append(r models.Reservation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	reservations, err := s.Load()
	if err != nil {
		return err
	}
	if err := checkAgainst(reservations, r, -1); err != nil {
		return err
	}
	return s.Save(append(reservations, r))
}

// Delete removes the reservation matching the guest name case-insensitively
// and returns the removed record.
func (s *Store) Delete(guestName string) (models.Reservation, error) {
	reservations, err := s.Load()
	if err != nil {
		return models.Reservation{}, err
	}
	idx := models.FindGuest(reservations, guestName)
	if idx < 0 {
		return models.Reservation{}, fmt.Errorf("%w: %s", models.ErrNotFound, guestName)
	}
	removed := reservations[idx]
	reservations = append(reservations[:idx], reservations[idx+1:]...)
	if err := s.Save(reservations); err != nil {
		return models.Reservation{}, err
	}
	return removed, nil
}

// Modify merges the patch into the matching reservation, re-runs the
// invariants against the rest of the store and saves. Returns the updated
// record.
func (s *Store) Modify(guestName string, patch models.ReservationPatch) (models.Reservation, error) {
	reservations, err := s.Load()
	if err != nil {
		return models.Reservation{}, err
	}
	idx := models.FindGuest(reservations, guestName)
	if idx < 0 {
		return models.Reservation{}, fmt.Errorf("%w: %s", models.ErrNotFound, guestName)
	}
	updated := patch.Apply(reservations[idx])
	if err := updated.Validate(); err != nil {
		return models.Reservation{}, err
	}
	if err := checkAgainst(reservations, updated, idx); err != nil {
		return models.Reservation{}, err
	}
	reservations[idx] = updated
	if err := s.Save(reservations); err != nil {
		return models.Reservation{}, err
	}
	return updated, nil
}

// checkAgainst enforces guest uniqueness and cabin overlap against every
// record except the one at skip (the record being replaced, or -1).
func checkAgainst(reservations []models.Reservation, candidate models.Reservation, skip int) error {
	for i, existing := range reservations {
		if i == skip {
			continue
		}
		if strings.EqualFold(existing.GuestName, candidate.GuestName) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateGuest, existing.GuestName)
		}
		if candidate.Overlaps(existing) {
			return fmt.Errorf("%w: %s is taken by %s from %s to %s",
				models.ErrCabinConflict,
				existing.Cabin,
				existing.GuestName,
				existing.CheckIn.Format(models.DateLayout),
				existing.CheckOut().Format(models.DateLayout))
		}
	}
	return nil
}

func parseRecord(record []string) (models.Reservation, error) {
	checkIn, err := time.Parse(models.DateLayout, record[1])
	if err != nil {
		return models.Reservation{}, fmt.Errorf("check_in_date: %v", err)
	}
	price, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("total_price: %v", err)
	}
	nights, err := strconv.Atoi(record[3])
	if err != nil {
		return models.Reservation{}, fmt.Errorf("total_nights: %v", err)
	}
	deposit := 0.0
	if record[5] != "" {
		deposit, err = strconv.ParseFloat(record[5], 64)
		if err != nil {
			return models.Reservation{}, fmt.Errorf("deposit: %v", err)
		}
	}
	return models.Reservation{
		GuestName:   record[0],
		CheckIn:     checkIn,
		TotalPrice:  price,
		TotalNights: nights,
		Cabin:       record[4],
		Deposit:     deposit,
		Phone:       record[6],
		Notes:       record[7],
	}, nil
}

func formatRecord(r models.Reservation) []string {
	return []string{
		r.GuestName,
		r.CheckIn.Format(models.DateLayout),
		strconv.FormatFloat(r.TotalPrice, 'f', -1, 64),
		strconv.Itoa(r.TotalNights),
		r.Cabin,
		strconv.FormatFloat(r.Deposit, 'f', -1, 64),
		r.Phone,
		r.Notes,
	}
}
