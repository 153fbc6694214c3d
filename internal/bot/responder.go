package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/laschacras/cabanas-api/internal/coordinator"
	"github.com/laschacras/cabanas-api/internal/models"
)

// Interpreter is the slice of the command interpreter the responder needs;
// satisfied by *interpret.Interpreter.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, snapshot []models.Reservation) (models.Intent, error)
}

// Responder runs one utterance through the interpret → coordinate pipeline
// and formats the operator-facing reply. It backs both the chat transport
// and the web UI chat endpoint.
type Responder struct {
	coord   *coordinator.Coordinator
	interp  Interpreter
	timeout time.Duration
}

func NewResponder(coord *coordinator.Coordinator, interp Interpreter, timeout time.Duration) *Responder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Responder{coord: coord, interp: interp, timeout: timeout}
}

// Respond always produces a reply; no branch is allowed to go silent.
func (r *Responder) Respond(ctx context.Context, utterance string) string {
	snapshot, err := r.coord.Snapshot()
	if err != nil {
		return fmt.Sprintf("❌ No pude leer las reservas: %v. Hay que reparar el archivo antes de seguir.", err)
	}

	// Interpreter network calls happen before the store lock is taken.
	intent, err := r.interp.Interpret(ctx, utterance, snapshot)
	if err != nil {
		return fmt.Sprintf("❌ No pude procesar el mensaje (%v). Intentá de nuevo.", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	switch intent.Kind {
	case models.IntentCreate:
		result, err := r.coord.Create(opCtx, intent.Reservation)
		if err != nil {
			return mutationError(err)
		}
		res := intent.Reservation
		return withWarnings(fmt.Sprintf("✅ Reserva creada para %s en %s, del %s al %s (%d noches).",
			res.GuestName, res.Cabin,
			res.CheckIn.Format(models.DateLayout), res.CheckOut().Format(models.DateLayout),
			res.TotalNights), result)

	case models.IntentModify:
		result, err := r.coord.Modify(opCtx, intent.GuestName, intent.Patch)
		if err != nil {
			return mutationError(err)
		}
		return withWarnings(fmt.Sprintf("✅ Reserva de %s actualizada.", intent.GuestName), result)

	case models.IntentDelete:
		result, err := r.coord.Delete(opCtx, intent.GuestName)
		if err != nil {
			return mutationError(err)
		}
		return withWarnings(fmt.Sprintf("✅ Reserva de %s cancelada.", intent.GuestName), result)

	case models.IntentQuery:
		if strings.TrimSpace(intent.Answer) == "" {
			return "No encontré nada para responder, ¿podés reformular la pregunta?"
		}
		return intent.Answer

	default:
		reply := "🤔 " + intent.Reason
		if len(intent.Candidates) > 0 {
			reply += fmt.Sprintf("\n¿Quisiste decir: %s?", strings.Join(intent.Candidates, ", "))
		}
		return reply
	}
}

func mutationError(err error) string {
	switch {
	case errors.Is(err, models.ErrTimeout):
		return "⏳ El sistema está ocupado con otra operación. Probá de nuevo en unos segundos."
	case errors.Is(err, models.ErrDuplicateGuest):
		return fmt.Sprintf("❌ Ya existe una reserva con ese nombre (%v).", err)
	case errors.Is(err, models.ErrCabinConflict):
		return fmt.Sprintf("❌ Conflicto de fechas: %v.", err)
	case errors.Is(err, models.ErrNotFound):
		return fmt.Sprintf("❌ %v.", err)
	case errors.Is(err, models.ErrStoreCorrupt):
		return fmt.Sprintf("❌ El archivo de reservas está dañado: %v. Hay que repararlo a mano.", err)
	default:
		return fmt.Sprintf("❌ No se pudo completar la operación: %v.", err)
	}
}

func withWarnings(reply string, result coordinator.Result) string {
	for _, w := range result.Warnings {
		reply += "\n⚠️ " + w
	}
	return reply
}
