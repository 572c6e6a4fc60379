package model

// IntentKind enumerates user intents accepted by the board.
type IntentKind string

// Intent kinds. RemovalDue is raised internally when a pending delete's
// exit delay elapses.
const (
	IntentAdd        IntentKind = "add_requested"
	IntentDelete     IntentKind = "delete_requested"
	IntentCommit     IntentKind = "field_committed"
	IntentLoad       IntentKind = "bulk_load_requested"
	IntentRemovalDue IntentKind = "removal_due"
)

// Intent is a discrete user action flowing through the intent queue.
type Intent struct {
	ID      string // idempotency key, optional
	Kind    IntentKind
	Target  Target
	Field   Field
	RawText string
	Payload []byte

	// Reply receives exactly one Outcome when set. It must be buffered.
	Reply chan<- Outcome
}

// Outcome is the result of applying an intent.
type Outcome struct {
	View      View
	Entry     Entry // the created or targeted entry, when there is one
	Duplicate bool  // intent ID was already applied
	Discarded bool  // import payload was malformed and dropped
	Err       error
}
