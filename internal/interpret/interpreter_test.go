package interpret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laschacras/cabanas-api/internal/models"
)

func snapshot(t *testing.T) []models.Reservation {
	t.Helper()
	checkIn, err := time.Parse(models.DateLayout, "2025-10-03")
	require.NoError(t, err)
	return []models.Reservation{
		{GuestName: "Ana Torres", CheckIn: checkIn, TotalPrice: 2000, TotalNights: 4, Cabin: "Colibri", Deposit: 500},
		{GuestName: "Luis Paz", CheckIn: checkIn.AddDate(0, 1, 0), TotalPrice: 900, TotalNights: 2, Cabin: "Peperina"},
		{GuestName: "María García", CheckIn: checkIn.AddDate(0, 2, 0), TotalPrice: 1500, TotalNights: 3, Cabin: "Colibri"},
	}
}

func TestParseReplyCreate(t *testing.T) {
	raw := `{"action":"create","guest_name":"Ana Torres","check_in_date":"2025-10-03",
		"total_nights":4,"total_price":2000,"cabin":"Colibri","deposit":500}`

	intent := parseReply(raw, nil)
	require.Equal(t, models.IntentCreate, intent.Kind)
	assert.Equal(t, "Ana Torres", intent.Reservation.GuestName)
	assert.Equal(t, 4, intent.Reservation.TotalNights)
	assert.Equal(t, 2000.0, intent.Reservation.TotalPrice)
	assert.Equal(t, 500.0, intent.Reservation.Deposit)
	assert.Equal(t, "Colibri", intent.Reservation.Cabin)
	assert.Equal(t, "2025-10-03", intent.Reservation.CheckIn.Format(models.DateLayout))
}

func TestParseReplyCreateDefaults(t *testing.T) {
	raw := `{"action":"create","guest_name":"Luis Paz","check_in_date":"2025-11-01",
		"total_nights":2,"total_price":900,"cabin":"Peperina"}`

	intent := parseReply(raw, nil)
	require.Equal(t, models.IntentCreate, intent.Kind)
	assert.Zero(t, intent.Reservation.Deposit)
	assert.Empty(t, intent.Reservation.Phone)
	assert.Empty(t, intent.Reservation.Notes)
}

func TestParseReplyCreateMissingFields(t *testing.T) {
	raw := `{"action":"create","guest_name":"Luis Paz"}`

	intent := parseReply(raw, nil)
	require.Equal(t, models.IntentReject, intent.Kind)
	assert.Contains(t, intent.Reason, "faltan datos")
}

func TestParseReplyToleratesCodeFences(t *testing.T) {
	raw := "```json\n{\"action\":\"query\",\"answer\":\"Ana llega el 3 de Octubre\"}\n```"

	intent := parseReply(raw, nil)
	require.Equal(t, models.IntentQuery, intent.Kind)
	assert.Equal(t, "Ana llega el 3 de Octubre", intent.Answer)
}

func TestParseReplyMalformed(t *testing.T) {
	intent := parseReply("I could not understand that request.", nil)
	require.Equal(t, models.IntentReject, intent.Kind)
	assert.Contains(t, intent.Reason, "no entendí la respuesta")
}

func TestParseReplyModifyBuildsPatch(t *testing.T) {
	raw := `{"action":"modify","guest_name":"ana torres","total_nights":5}`

	intent := parseReply(raw, snapshot(t))
	require.Equal(t, models.IntentModify, intent.Kind)
	// Target resolves to the stored casing.
	assert.Equal(t, "Ana Torres", intent.GuestName)
	require.NotNil(t, intent.Patch.TotalNights)
	assert.Equal(t, 5, *intent.Patch.TotalNights)
	assert.Nil(t, intent.Patch.TotalPrice)
	assert.Nil(t, intent.Patch.CheckIn)
	assert.Nil(t, intent.Patch.Cabin)
	assert.Nil(t, intent.Patch.Notes)
}

func TestParseReplyUnknownGuestSuggestsCandidates(t *testing.T) {
	raw := `{"action":"delete","guest_name":"Ana Tores"}`

	intent := parseReply(raw, snapshot(t))
	require.Equal(t, models.IntentReject, intent.Kind)
	assert.Contains(t, intent.Reason, "Ana Tores")
	require.NotEmpty(t, intent.Candidates)
	assert.Equal(t, "Ana Torres", intent.Candidates[0])
	assert.LessOrEqual(t, len(intent.Candidates), 3)
}

func TestParseReplyDelete(t *testing.T) {
	raw := `{"action":"delete","guest_name":"LUIS PAZ"}`

	intent := parseReply(raw, snapshot(t))
	require.Equal(t, models.IntentDelete, intent.Kind)
	assert.Equal(t, "Luis Paz", intent.GuestName)
}

func TestParseReplyRejectPassesReason(t *testing.T) {
	raw := `{"action":"reject","reason":"el mensaje no habla de reservas"}`

	intent := parseReply(raw, nil)
	require.Equal(t, models.IntentReject, intent.Kind)
	assert.Equal(t, "el mensaje no habla de reservas", intent.Reason)
}

func TestBuildPromptCarriesContext(t *testing.T) {
	now, err := time.Parse(models.DateLayout, "2025-09-15")
	require.NoError(t, err)

	prompt := buildPrompt(snapshot(t), now)
	assert.Contains(t, prompt, "2025-09-15")
	assert.Contains(t, prompt, "Colibri, Peperina")
	assert.Contains(t, prompt, "Ana Torres")
	assert.Contains(t, prompt, "2025-10-03 to 2025-10-07")
}

func TestBuildPromptEmptyStore(t *testing.T) {
	prompt := buildPrompt(nil, time.Now())
	assert.Contains(t, prompt, "(no reservations)")
	assert.NotContains(t, prompt, "Known cabins")
}

func TestCandidatesRanking(t *testing.T) {
	names := candidates("luis pas", snapshot(t))
	require.NotEmpty(t, names)
	assert.Equal(t, "Luis Paz", names[0])
}

func TestCandidatesEmptySnapshot(t *testing.T) {
	assert.Empty(t, candidates("whoever", nil))
}
