package models

type IntentKind string

const (
	IntentCreate IntentKind = "create"
	IntentModify IntentKind = "modify"
	IntentDelete IntentKind = "delete"
	IntentQuery  IntentKind = "query"
	IntentReject IntentKind = "reject"
)

// Intent is the interpreter's structured reading of one operator utterance.
// Intents are ephemeral and advisory; every field is re-validated by the
// coordinator before anything mutates.
type Intent struct {
	Kind IntentKind

	// Create carries a full reservation; Modify carries the target guest
	// plus a patch; Delete carries only the target guest.
	Reservation Reservation
	GuestName   string
	Patch       ReservationPatch

	// Query carries the model's free-form answer.
	Answer string

	// Reject carries the reason and, for unknown guests, up to three
	// nearest candidates.
	Reason     string
	Candidates []string
}
