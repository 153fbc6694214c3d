package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laschacras/cabanas-api/internal/coordinator"
	"github.com/laschacras/cabanas-api/internal/models"
	"github.com/laschacras/cabanas-api/internal/publish"
	"github.com/laschacras/cabanas-api/internal/store"
)

type stubInterpreter struct {
	intent models.Intent
	err    error
}

func (s stubInterpreter) Interpret(ctx context.Context, utterance string, snapshot []models.Reservation) (models.Intent, error) {
	return s.intent, s.err
}

type recordingPublisher struct {
	failWith    error
	count       int
	sawDeadline bool
}

func (p *recordingPublisher) Publish(ctx context.Context, artifact []byte, operation, guestName string, now time.Time) (publish.State, error) {
	p.count++
	if _, ok := ctx.Deadline(); ok {
		p.sawDeadline = true
	}
	if p.failWith != nil {
		return publish.StateFailed, p.failWith
	}
	return publish.StatePublished, nil
}

func newTestResponder(t *testing.T, intent models.Intent, interpErr error) (*Responder, *store.Store, *recordingPublisher) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "reservations.csv"))
	pub := &recordingPublisher{}
	coord := coordinator.New(st, pub, nil)
	return NewResponder(coord, stubInterpreter{intent: intent, err: interpErr}, time.Second), st, pub
}

func createIntent(t *testing.T, guest, day string) models.Intent {
	t.Helper()
	checkIn, err := time.Parse(models.DateLayout, day)
	require.NoError(t, err)
	return models.Intent{
		Kind: models.IntentCreate,
		Reservation: models.Reservation{
			GuestName:   guest,
			CheckIn:     checkIn,
			TotalPrice:  2000,
			TotalNights: 4,
			Cabin:       "Colibri",
			Deposit:     500,
		},
	}
}

func TestRespondCreate(t *testing.T) {
	responder, st, pub := newTestResponder(t, createIntent(t, "Ana Torres", "2025-10-03"), nil)

	reply := responder.Respond(context.Background(), "reservá para Ana")
	assert.Contains(t, reply, "✅ Reserva creada para Ana Torres en Colibri")
	assert.Contains(t, reply, "del 2025-10-03 al 2025-10-07 (4 noches)")

	reservations, err := st.Load()
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
	assert.Equal(t, 1, pub.count)
}

func TestRespondDuplicateGuest(t *testing.T) {
	intent := createIntent(t, "Ana Torres", "2025-10-03")
	responder, st, _ := newTestResponder(t, intent, nil)
	require.NoError(t, st.Append(intent.Reservation))

	reply := responder.Respond(context.Background(), "reservá para Ana")
	assert.Contains(t, reply, "Ya existe una reserva con ese nombre")
}

func TestRespondDelete(t *testing.T) {
	responder, st, _ := newTestResponder(t, models.Intent{
		Kind:      models.IntentDelete,
		GuestName: "Ana Torres",
	}, nil)
	require.NoError(t, st.Append(createIntent(t, "Ana Torres", "2025-10-03").Reservation))

	reply := responder.Respond(context.Background(), "cancelá la de Ana")
	assert.Contains(t, reply, "✅ Reserva de Ana Torres cancelada")

	reservations, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, reservations)
}

func TestRespondDeleteUnknownGuest(t *testing.T) {
	responder, _, pub := newTestResponder(t, models.Intent{
		Kind:      models.IntentDelete,
		GuestName: "Nadie",
	}, nil)

	reply := responder.Respond(context.Background(), "cancelá la de Nadie")
	assert.Contains(t, reply, "❌")
	assert.Equal(t, 0, pub.count, "failed mutation must not publish")
}

func TestRespondQueryPassesAnswerThrough(t *testing.T) {
	responder, _, _ := newTestResponder(t, models.Intent{
		Kind:   models.IntentQuery,
		Answer: "Ana Torres llega el 3 de octubre a Colibri.",
	}, nil)

	reply := responder.Respond(context.Background(), "¿cuándo llega Ana?")
	assert.Equal(t, "Ana Torres llega el 3 de octubre a Colibri.", reply)
}

func TestRespondRejectWithCandidates(t *testing.T) {
	responder, _, _ := newTestResponder(t, models.Intent{
		Kind:       models.IntentReject,
		Reason:     "no encontré una reserva a nombre de \"Anna Tores\"",
		Candidates: []string{"Ana Torres", "Luis Paz"},
	}, nil)

	reply := responder.Respond(context.Background(), "cambiá la de Anna Tores")
	assert.Contains(t, reply, "🤔")
	assert.Contains(t, reply, "¿Quisiste decir: Ana Torres, Luis Paz?")
}

func TestRespondInterpreterError(t *testing.T) {
	responder, _, _ := newTestResponder(t, models.Intent{}, errors.New("model unavailable"))

	reply := responder.Respond(context.Background(), "hola")
	assert.Contains(t, reply, "No pude procesar el mensaje")
}

func TestRespondSurfacesPublishWarning(t *testing.T) {
	responder, _, pub := newTestResponder(t, createIntent(t, "Ana Torres", "2025-10-03"), nil)
	pub.failWith = errors.New("remote unreachable")

	reply := responder.Respond(context.Background(), "reservá para Ana")
	assert.Contains(t, reply, "✅ Reserva creada")
	assert.Contains(t, reply, "⚠️")
}
