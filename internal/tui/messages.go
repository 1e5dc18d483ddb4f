package tui

import (
	"image"

	"github.com/facedeck/facedeck/internal/domain"
)

// FacesScannedMsg carries the result of a directory scan
type FacesScannedMsg struct {
	Dir   string
	Faces []*domain.FaceRecord
}

// DecodeResultMsg carries a decoded bitmap from the worker pool
type DecodeResultMsg struct {
	Identity string
	Image    image.Image
	Err      error
}

// ImportFinishedMsg carries the outcome of a bulk metadata import
type ImportFinishedMsg struct {
	Result *domain.ImportResult
	Err    error
}

// EmbedFinishedMsg carries the outcome of a mask embedding run
type EmbedFinishedMsg struct {
	Result *domain.EmbedResult
	Err    error
}

// ProgressEventMsg wraps a server event accepted for the active operation
type ProgressEventMsg struct {
	Event domain.ProgressEvent
}

// ChannelStateMsg reports a progress channel state transition
type ChannelStateMsg struct {
	State domain.ChannelState
}

// HealthMsg reports the result of a server health probe
type HealthMsg struct {
	Available bool
	Err       error
}

// DirChangedMsg signals that the watched directory changed on disk
type DirChangedMsg struct{}

// ErrMsg carries a general error to surface in the status bar
type ErrMsg struct {
	Err error
}
