package domain

// EventKind tags an inbound progress-channel message.
type EventKind string

const (
	EventProgress    EventKind = "progress"
	EventItemSuccess EventKind = "item-success"
	EventItemFailure EventKind = "item-failure"
	EventItemError   EventKind = "item-error"
	EventComplete    EventKind = "complete"
	EventConsoleLog  EventKind = "console_log"
)

// ProgressEvent is one asynchronous notification from the progress channel.
// Events are advisory display feedback only; they never drive authoritative
// state transitions. Transient - rendered once, never persisted.
type ProgressEvent struct {
	Kind      EventKind `json:"type"`
	NodeID    string    `json:"node_id"` // Correlation id of the owning operation
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Item      string    `json:"item"`    // Current item label, e.g. a filename
	Level     string    `json:"level"`   // Console-log severity: info/warning/error
	Message   string    `json:"message"` // Human-readable text
}

// ProgressFunc receives incremental import feedback for UI display.
type ProgressFunc func(ev ProgressEvent)

// ChannelState is the progress channel's connection state.
type ChannelState int

const (
	ChannelDisconnected ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosing
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosing:
		return "closing"
	default:
		return "disconnected"
	}
}
