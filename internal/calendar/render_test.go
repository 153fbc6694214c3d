package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laschacras/cabanas-api/internal/models"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, value)
	require.NoError(t, err)
	return d
}

func anaTorres(t *testing.T) models.Reservation {
	return models.Reservation{
		GuestName:   "Ana Torres",
		CheckIn:     date(t, "2025-10-03"),
		TotalPrice:  2000,
		TotalNights: 4,
		Cabin:       "Colibri",
		Deposit:     500,
	}
}

func TestRenderSingleReservation(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	out, err := Render([]models.Reservation{anaTorres(t)}, now)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "VERSION:2.0")
	assert.Contains(t, text, "PRODID:"+ProdID)
	assert.Equal(t, 1, strings.Count(text, "BEGIN:VEVENT"))
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20251003")
	// DTEND is exclusive: one day past the fourth night.
	assert.Contains(t, text, "DTEND;VALUE=DATE:20251007")
	assert.Contains(t, text, "STATUS:CONFIRMED")
	assert.Contains(t, text, UID(anaTorres(t)))
}

func TestRenderUsesCRLF(t *testing.T) {
	out, err := Render([]models.Reservation{anaTorres(t)}, time.Now())
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSuffix(string(out), "\r\n"), "\r\n") {
		assert.False(t, strings.HasSuffix(line, "\r"), "stray CR in %q", line)
		assert.NotContains(t, line, "\n")
	}
}

func TestRenderFoldsLongLines(t *testing.T) {
	r := anaTorres(t)
	r.Notes = strings.Repeat("nota muy larga sobre la estadía ", 10)

	out, err := Render([]models.Reservation{r}, time.Now())
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\r\n") {
		assert.LessOrEqual(t, len(line), 75, "unfolded line: %q", line)
	}
}

func TestRenderEscapesSpecialCharacters(t *testing.T) {
	r := anaTorres(t)
	r.Notes = "trae perro; paga 50%, resto después"

	out, err := Render([]models.Reservation{r}, time.Now())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, `\;`)
	assert.Contains(t, text, `\,`)
}

func TestRenderEmptyStore(t *testing.T) {
	out, err := Render(nil, time.Now())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.NotContains(t, text, "BEGIN:VEVENT")
}

func TestRenderIsDeterministic(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	reservations := []models.Reservation{
		anaTorres(t),
		{
			GuestName:   "Luis Paz",
			CheckIn:     date(t, "2025-11-01"),
			TotalPrice:  900,
			TotalNights: 2,
			Cabin:       "Peperina",
		},
	}

	first, err := Render(reservations, now)
	require.NoError(t, err)
	second, err := Render(reservations, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUIDIsStable(t *testing.T) {
	r := anaTorres(t)
	assert.Equal(t, UID(r), UID(r))
	assert.True(t, strings.HasSuffix(UID(r), "@cabanaslaschacras.ar"))

	// Case of the guest name does not change the UID; the date does.
	upper := r
	upper.GuestName = "ANA TORRES"
	assert.Equal(t, UID(r), UID(upper))

	moved := r
	moved.CheckIn = date(t, "2025-10-04")
	assert.NotEqual(t, UID(r), UID(moved))
}

func TestRenderRejectsInvariantViolations(t *testing.T) {
	overlapping := []models.Reservation{
		anaTorres(t),
		{
			GuestName:   "Luis Paz",
			CheckIn:     date(t, "2025-10-05"),
			TotalPrice:  900,
			TotalNights: 2,
			Cabin:       "Colibri",
		},
	}
	_, err := Render(overlapping, time.Now())
	assert.ErrorIs(t, err, models.ErrRenderInvariant)

	duplicates := []models.Reservation{anaTorres(t), anaTorres(t)}
	duplicates[1].Cabin = "Peperina"
	_, err = Render(duplicates, time.Now())
	assert.ErrorIs(t, err, models.ErrRenderInvariant)
}
