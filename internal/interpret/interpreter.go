package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/laschacras/cabanas-api/internal/models"
)

const defaultModel = "gemini-2.5-flash"

// Interpreter translates free-form operator utterances into structured
// intents with an external language model. It is advisory only: it never
// mutates anything, and the coordinator re-validates every field.
type Interpreter struct {
	client *genai.Client
	model  *genai.GenerativeModel
	now    func() time.Time
}

func New(ctx context.Context, apiKey, modelName string) (*Interpreter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create language model client: %w", err)
	}
	if modelName == "" {
		modelName = defaultModel
	}
	model := client.GenerativeModel(modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	return &Interpreter{client: client, model: model, now: time.Now}, nil
}

func (i *Interpreter) Close() error {
	return i.client.Close()
}

// Interpret sends the utterance with the current schedule to the model and
// parses the structured reply. A malformed reply becomes a Reject intent so
// the operator is re-prompted instead of the failure being swallowed.
func (i *Interpreter) Interpret(ctx context.Context, utterance string, snapshot []models.Reservation) (models.Intent, error) {
	prompt := buildPrompt(snapshot, i.now())
	resp, err := i.model.GenerateContent(ctx, genai.Text(prompt), genai.Text(utterance))
	if err != nil {
		return models.Intent{}, fmt.Errorf("language model: %w", err)
	}
	return parseReply(replyText(resp), snapshot), nil
}

func replyText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

func buildPrompt(snapshot []models.Reservation, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are the reservation assistant for a small cabin rental.\n")
	fmt.Fprintf(&b, "Today's date is %s.\n\n", now.Format(models.DateLayout))
	b.WriteString("Read the operator's message and answer with a single JSON object, nothing else:\n")
	b.WriteString(`{"action": "create"|"modify"|"delete"|"query"|"reject",` + "\n")
	b.WriteString(` "guest_name": string, "check_in_date": "YYYY-MM-DD", "total_nights": integer,` + "\n")
	b.WriteString(` "total_price": number, "cabin": string, "deposit": number,` + "\n")
	b.WriteString(` "phone": string, "notes": string, "reason": string, "answer": string}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- create requires guest_name, check_in_date, total_nights, total_price and cabin; deposit defaults to 0, phone and notes to empty.\n")
	b.WriteString("- modify and delete require guest_name; for modify include only the fields the operator changed.\n")
	b.WriteString("- Resolve relative dates (\"next Friday\", \"mañana\") against today's date; assume the current year when none is given.\n")
	b.WriteString("- Parse spelled-out quantities (\"three nights\", \"two weeks\") into integers; a week is 7 nights.\n")
	b.WriteString("- query answers questions about the schedule below; put the answer, in the operator's language, in \"answer\" using 'day de Month' Spanish dates.\n")
	b.WriteString("- When the message is not about reservations or required fields are missing, use reject and explain in \"reason\".\n")

	if cabins := models.Cabins(snapshot); len(cabins) > 0 {
		fmt.Fprintf(&b, "\nKnown cabins: %s. New bookings may also use a new cabin name if the operator insists.\n", strings.Join(cabins, ", "))
	}

	b.WriteString("\nCurrent schedule:\n")
	if len(snapshot) == 0 {
		b.WriteString("(no reservations)\n")
	}
	for _, r := range snapshot {
		fmt.Fprintf(&b, "- %s | %s | %s to %s | %d nights | total %g | deposit %g\n",
			r.GuestName, r.Cabin,
			r.CheckIn.Format(models.DateLayout), r.CheckOut().Format(models.DateLayout),
			r.TotalNights, r.TotalPrice, r.Deposit)
	}
	return b.String()
}

// reply is the wire schema the model is asked to produce. Pointer fields
// distinguish "absent" from zero for modify patches.
type reply struct {
	Action      string   `json:"action"`
	GuestName   string   `json:"guest_name"`
	CheckInDate string   `json:"check_in_date"`
	TotalNights *int     `json:"total_nights"`
	TotalPrice  *float64 `json:"total_price"`
	Cabin       string   `json:"cabin"`
	Deposit     *float64 `json:"deposit"`
	Phone       *string  `json:"phone"`
	Notes       *string  `json:"notes"`
	Reason      string   `json:"reason"`
	Answer      string   `json:"answer"`
}

func parseReply(raw string, snapshot []models.Reservation) models.Intent {
	var r reply
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return reject(fmt.Sprintf("no entendí la respuesta del asistente (%v), por favor reformulá el pedido", err))
	}

	switch models.IntentKind(r.Action) {
	case models.IntentCreate:
		return createIntent(r)
	case models.IntentModify:
		return modifyIntent(r, snapshot)
	case models.IntentDelete:
		return deleteIntent(r, snapshot)
	case models.IntentQuery:
		return models.Intent{Kind: models.IntentQuery, Answer: r.Answer}
	case models.IntentReject:
		if r.Reason == "" {
			r.Reason = "no pude interpretar el pedido"
		}
		return reject(r.Reason)
	default:
		return reject(fmt.Sprintf("acción desconocida %q, por favor reformulá el pedido", r.Action))
	}
}

func createIntent(r reply) models.Intent {
	if r.GuestName == "" || r.CheckInDate == "" || r.TotalNights == nil || r.TotalPrice == nil || r.Cabin == "" {
		return reject("faltan datos para crear la reserva: necesito huésped, fecha de entrada, noches, precio total y cabaña")
	}
	checkIn, err := time.Parse(models.DateLayout, r.CheckInDate)
	if err != nil {
		return reject(fmt.Sprintf("no entendí la fecha %q", r.CheckInDate))
	}
	res := models.Reservation{
		GuestName:   r.GuestName,
		CheckIn:     checkIn,
		TotalPrice:  *r.TotalPrice,
		TotalNights: *r.TotalNights,
		Cabin:       r.Cabin,
	}
	if r.Deposit != nil {
		res.Deposit = *r.Deposit
	}
	if r.Phone != nil {
		res.Phone = *r.Phone
	}
	if r.Notes != nil {
		res.Notes = *r.Notes
	}
	return models.Intent{Kind: models.IntentCreate, Reservation: res}
}

func modifyIntent(r reply, snapshot []models.Reservation) models.Intent {
	target, ok := resolveGuest(r.GuestName, snapshot)
	if !ok {
		return unknownGuest(r.GuestName, snapshot)
	}
	patch := models.ReservationPatch{
		TotalNights: r.TotalNights,
		TotalPrice:  r.TotalPrice,
		Deposit:     r.Deposit,
		Phone:       r.Phone,
		Notes:       r.Notes,
	}
	if r.CheckInDate != "" {
		checkIn, err := time.Parse(models.DateLayout, r.CheckInDate)
		if err != nil {
			return reject(fmt.Sprintf("no entendí la fecha %q", r.CheckInDate))
		}
		patch.CheckIn = &checkIn
	}
	if r.Cabin != "" {
		patch.Cabin = &r.Cabin
	}
	return models.Intent{Kind: models.IntentModify, GuestName: target, Patch: patch}
}

func deleteIntent(r reply, snapshot []models.Reservation) models.Intent {
	target, ok := resolveGuest(r.GuestName, snapshot)
	if !ok {
		return unknownGuest(r.GuestName, snapshot)
	}
	return models.Intent{Kind: models.IntentDelete, GuestName: target}
}

func resolveGuest(name string, snapshot []models.Reservation) (string, bool) {
	if name == "" {
		return "", false
	}
	if idx := models.FindGuest(snapshot, name); idx >= 0 {
		return snapshot[idx].GuestName, true
	}
	return "", false
}

func unknownGuest(name string, snapshot []models.Reservation) models.Intent {
	return models.Intent{
		Kind:       models.IntentReject,
		Reason:     fmt.Sprintf("no encontré ninguna reserva a nombre de %q", name),
		Candidates: candidates(name, snapshot),
	}
}

func reject(reason string) models.Intent {
	return models.Intent{Kind: models.IntentReject, Reason: reason}
}

// stripFences tolerates models that wrap the JSON in a markdown code block
// despite the JSON response mode.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
