package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facedeck/facedeck/internal/channel"
	"github.com/facedeck/facedeck/internal/decode"
	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/faceset"
	"github.com/facedeck/facedeck/internal/metadata"
)

const channelPollInterval = time.Second

// scanFacesCmd scans the input directory for face images.
func scanFacesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		faces, err := faceset.Scan(context.Background(), dir)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return FacesScannedMsg{Dir: dir, Faces: faces}
	}
}

// startImportCmd runs a bulk metadata import against the backend.
func startImportCmd(engine *metadata.Engine, nodeID string) tea.Cmd {
	return func() tea.Msg {
		result, err := engine.StartBulkImport(context.Background(), nodeID)
		return ImportFinishedMsg{Result: result, Err: err}
	}
}

// embedMasksCmd runs a mask embedding pass for the given identities.
func embedMasksCmd(engine *metadata.Engine, nodeID string, identities []string, eyebrowExpandMod int) tea.Cmd {
	return func() tea.Msg {
		result, err := engine.EmbedMasks(context.Background(), nodeID, identities, eyebrowExpandMod)
		return EmbedFinishedMsg{Result: result, Err: err}
	}
}

// healthCmd probes the backend health endpoint.
func healthCmd(client domain.ComputeClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := client.Health(ctx)
		return HealthMsg{Available: err == nil, Err: err}
	}
}

// waitForEvent blocks on the bridge channel for the next accepted progress
// event. It is re-issued from Update after every delivery.
func waitForEvent(events <-chan domain.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return ProgressEventMsg{Event: ev}
	}
}

// waitForDecode blocks on the worker pool's result stream. It is re-issued
// from Update after every delivery.
func waitForDecode(pool *decode.Pool) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-pool.Results()
		if !ok {
			return nil
		}
		return DecodeResultMsg{Identity: res.Identity, Image: res.Image, Err: res.Err}
	}
}

// waitForDirChange blocks until the filesystem watcher reports a change.
func waitForDirChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-changes
		if !ok {
			return nil
		}
		return DirChangedMsg{}
	}
}

// channelTick samples the progress channel state on a fixed cadence.
func channelTick(ch *channel.Channel) tea.Cmd {
	return tea.Tick(channelPollInterval, func(time.Time) tea.Msg {
		return ChannelStateMsg{State: ch.State()}
	})
}
