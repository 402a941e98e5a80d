package engine

import "context"

// Button is one interactive reply button (platforms allow at most three).
type Button struct {
	ID    string
	Title string
}

// ListRow is a selectable row inside an interactive list section.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows in an interactive list message.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Messenger delivers outbound WhatsApp messages. Sends are fire-and-log:
// the engine logs failures and never retries.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
	SendButtons(ctx context.Context, phone, text string, buttons []Button) error
	SendList(ctx context.Context, phone, text, buttonLabel string, sections []ListSection) error
}

// Event is an operational notification (subscription created, backend
// outage). Delivery is best-effort and invisible to the end user.
type Event struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error", "success"
}

// Notifier posts ops events to a chat platform. Optional.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Intent is a classified user intention from free text.
type Intent struct {
	Name       string // SUBSCRIBE_PASS, CHECK_COMMISSIONS, RUN_SIMULATION
	Confidence float64
}

// Classifier detects intent in free text, letting users skip explicit menu
// navigation. Optional: a nil classifier disables the feature, and any
// error or low-confidence result falls through to normal menu matching.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Intent, error)
}
