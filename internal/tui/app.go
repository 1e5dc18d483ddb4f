package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/facedeck/facedeck/internal/channel"
	"github.com/facedeck/facedeck/internal/config"
	"github.com/facedeck/facedeck/internal/decode"
	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/faceset"
	"github.com/facedeck/facedeck/internal/metadata"
	"github.com/facedeck/facedeck/internal/search"
	"github.com/facedeck/facedeck/internal/tui/components"
	"github.com/facedeck/facedeck/internal/tui/styles"
)

// Layout proportions
const (
	InspectorPercent  = 30
	MinInspectorWidth = 24

	// Vertical chrome: one status bar line
	ChromeHeight = 1
)

// Model is the main Bubble Tea model for the application
type Model struct {
	cfg    *config.Config
	logger *slog.Logger

	engine  *metadata.Engine
	client  domain.ComputeClient
	channel *channel.Channel
	pool    *decode.Pool

	// Bridge channels feeding messages into the program
	events  <-chan domain.ProgressEvent
	changes <-chan struct{}

	keys KeyMap

	grid      components.Grid
	inspector components.Inspector
	statusBar components.StatusBar
	logView   components.LogView

	searchSvc  *search.Service
	jumpActive bool
	jumpInput  textinput.Model

	// records is indexed by identity for decode results and toggles
	records map[string]*domain.FaceRecord
	// queued tracks identities already handed to the decode pool
	queued map[string]struct{}

	width  int
	height int
	ready  bool

	showInspector bool
	showLog       bool
	importing     bool
}

// NewModel assembles the application model. The events and changes channels
// bridge the engine's progress callback and the filesystem watcher into the
// Bubble Tea message loop.
func NewModel(
	cfg *config.Config,
	engine *metadata.Engine,
	client domain.ComputeClient,
	ch *channel.Channel,
	pool *decode.Pool,
	events <-chan domain.ProgressEvent,
	changes <-chan struct{},
	logger *slog.Logger,
) Model {
	if logger == nil {
		logger = slog.Default()
	}

	jumpInput := textinput.New()
	jumpInput.Placeholder = "jump to face..."
	jumpInput.Prompt = "f "
	jumpInput.PromptStyle = styles.FilterPromptStyle
	jumpInput.TextStyle = styles.FilterStyle

	m := Model{
		cfg:           cfg,
		logger:        logger,
		engine:        engine,
		client:        client,
		channel:       ch,
		pool:          pool,
		events:        events,
		changes:       changes,
		keys:          DefaultKeyMap(),
		grid:          components.NewGrid(engine, cfg.UI.CellWidth),
		inspector:     components.NewInspector(engine),
		statusBar:     components.NewStatusBar(),
		logView:       components.NewLogView(),
		searchSvc:     search.NewService(logger),
		jumpInput:     jumpInput,
		records:       make(map[string]*domain.FaceRecord),
		queued:        make(map[string]struct{}),
		showInspector: true,
	}
	m.grid.SetMaxColumns(cfg.UI.GridColumns)
	return m
}

// Init kicks off the initial directory scan and the long-lived bridge reads.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		scanFacesCmd(m.engine.Directory()),
		waitForEvent(m.events),
		waitForDecode(m.pool),
		healthCmd(m.client),
		channelTick(m.channel),
	}
	if m.changes != nil {
		cmds = append(cmds, waitForDirChange(m.changes))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLayout()
		return m, m.syncVisible()

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case FacesScannedMsg:
		return m.handleFacesScanned(msg)

	case DecodeResultMsg:
		if msg.Err == nil && msg.Image != nil {
			if record, ok := m.records[msg.Identity]; ok {
				record.Bitmap = msg.Image
			}
		}
		m.updateInspector()
		return m, waitForDecode(m.pool)

	case ImportFinishedMsg:
		m.importing = false
		m.statusBar.SetImporting(false)
		if msg.Err != nil {
			m.statusBar.SetError(fmt.Sprintf("import failed: %v", msg.Err))
		} else if msg.Result != nil {
			m.statusBar.SetMessage(fmt.Sprintf("imported %d faces (%d landmarks, %d segmentation)",
				msg.Result.FacesImported, msg.Result.FacesWithLandmarks, msg.Result.FacesWithSegmentation))
		}
		m.refreshCounts()
		return m, nil

	case EmbedFinishedMsg:
		m.importing = false
		m.statusBar.SetImporting(false)
		if msg.Err != nil {
			m.statusBar.SetError(fmt.Sprintf("embed failed: %v", msg.Err))
		} else if msg.Result != nil {
			m.statusBar.SetMessage(fmt.Sprintf("embedded masks into %d/%d faces",
				msg.Result.SuccessCount, msg.Result.ProcessedCount))
		}
		return m, nil

	case ProgressEventMsg:
		if msg.Event.Kind == domain.EventConsoleLog || msg.Event.Message != "" {
			m.logView.Append(msg.Event)
		}
		m.statusBar.SetProgress(msg.Event)
		return m, waitForEvent(m.events)

	case ChannelStateMsg:
		m.statusBar.SetChannelState(msg.State)
		return m, channelTick(m.channel)

	case HealthMsg:
		m.statusBar.SetHealth(msg.Available)
		return m, nil

	case DirChangedMsg:
		m.statusBar.SetMessage("directory changed, rescanning")
		return m, tea.Batch(scanFacesCmd(m.engine.Directory()), waitForDirChange(m.changes))

	case ErrMsg:
		m.statusBar.SetError(msg.Err.Error())
		return m, nil
	}

	return m, nil
}

// handleKeyMsg routes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Filter typing consumes everything except ctrl+c
	if m.grid.IsFilterTyping() && msg.String() != "ctrl+c" {
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		m.updateInspector()
		return m, tea.Batch(cmd, m.syncVisible())
	}

	if m.jumpActive {
		switch msg.String() {
		case "esc":
			m.closeJump()
			return m, nil
		case "enter":
			query := m.jumpInput.Value()
			m.closeJump()
			if query == "" {
				return m, nil
			}
			// Exact labels like face_12 resolve positionally before
			// falling back to fuzzy matching.
			if rec, ok := faceset.ResolveIdentity(query, m.grid.Records()); ok {
				m.grid.CursorToIdentity(rec.Identity)
				m.updateInspector()
				return m, m.syncVisible()
			}
			hits := m.searchSvc.Search(query)
			if len(hits) == 0 {
				m.statusBar.SetError("no match for " + query)
				return m, nil
			}
			m.grid.CursorToIdentity(hits[0].Record.Identity)
			m.updateInspector()
			return m, m.syncVisible()
		}
		var cmd tea.Cmd
		m.jumpInput, cmd = m.jumpInput.Update(msg)
		return m, cmd
	}

	if m.showLog {
		switch {
		case key.Matches(msg, m.keys.ToggleLog), key.Matches(msg, m.keys.Escape):
			m.showLog = false
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Filter):
		m.grid.ToggleFilter()
		m.updateLayout()
		return m, nil

	case key.Matches(msg, m.keys.Jump):
		m.jumpActive = true
		return m, m.jumpInput.Focus()

	case key.Matches(msg, m.keys.Import):
		return m.startImport()

	case key.Matches(msg, m.keys.Embed):
		return m.startEmbed()

	case key.Matches(msg, m.keys.Rescan):
		return m, scanFacesCmd(m.engine.Directory())

	case key.Matches(msg, m.keys.Select):
		if record := m.grid.SelectedRecord(); record != nil {
			record.Selected = !record.Selected
		}
		return m, nil

	case key.Matches(msg, m.keys.Bookmark):
		if record := m.grid.SelectedRecord(); record != nil {
			record.Bookmarked = !record.Bookmarked
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleInspector):
		m.showInspector = !m.showInspector
		m.updateLayout()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = true
		return m, nil
	}

	// Everything else is grid navigation
	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	m.updateInspector()
	return m, tea.Batch(cmd, m.syncVisible())
}

// handleFacesScanned installs a fresh scan result. Marks and decoded bitmaps
// carry over by identity; the metadata engine is repointed only when the
// directory actually changed, so a rescan of the same directory keeps the
// cache warm.
func (m Model) handleFacesScanned(msg FacesScannedMsg) (tea.Model, tea.Cmd) {
	if msg.Dir != m.engine.Directory() {
		m.engine.SetDirectory(msg.Dir)
	}

	records := make(map[string]*domain.FaceRecord, len(msg.Faces))
	for _, face := range msg.Faces {
		if prev, ok := m.records[face.Identity]; ok {
			face.Selected = prev.Selected
			face.Bookmarked = prev.Bookmarked
			face.Bitmap = prev.Bitmap
		}
		records[face.Identity] = face
	}
	m.records = records
	m.queued = make(map[string]struct{})

	m.grid.SetRecords(msg.Faces)
	m.grid.SetBreadcrumb(msg.Dir)
	m.searchSvc.Index(msg.Faces)
	m.refreshCounts()
	m.updateInspector()
	return m, m.syncVisible()
}

// startImport launches the bulk metadata import for the active directory.
func (m Model) startImport() (tea.Model, tea.Cmd) {
	if m.importing {
		m.statusBar.SetError("an operation is already running")
		return m, nil
	}
	if m.grid.IsEmpty() {
		m.statusBar.SetError("no faces to import")
		return m, nil
	}

	m.importing = true
	m.statusBar.SetImporting(true)
	m.statusBar.SetMessage("importing face metadata")
	m.logView.Clear()
	return m, startImportCmd(m.engine, m.cfg.Server.NodeID)
}

// startEmbed launches mask embedding for the selected faces.
func (m Model) startEmbed() (tea.Model, tea.Cmd) {
	if m.importing {
		m.statusBar.SetError("an operation is already running")
		return m, nil
	}

	var identities []string
	for _, record := range m.grid.Records() {
		if record.Selected {
			identities = append(identities, record.Identity)
		}
	}
	if len(identities) == 0 {
		m.statusBar.SetError("no faces selected")
		return m, nil
	}

	m.importing = true
	m.statusBar.SetImporting(true)
	m.statusBar.SetMessage(fmt.Sprintf("embedding masks for %d faces", len(identities)))
	m.logView.Clear()
	return m, embedMasksCmd(m.engine, m.cfg.Server.NodeID, identities, 0)
}

// syncVisible forwards newly exposed identities to the metadata scheduler and
// queues their bitmaps for decoding. Identities still in the viewport from
// the previous pass are not re-sent.
func (m *Model) syncVisible() tea.Cmd {
	fresh := m.grid.NewlyVisible()
	if len(fresh) == 0 {
		m.refreshCounts()
		return nil
	}

	m.engine.EnsureMetadata(fresh)

	for _, id := range fresh {
		record, ok := m.records[id]
		if !ok || record.Bitmap != nil {
			continue
		}
		if _, already := m.queued[id]; already {
			continue
		}
		if err := m.pool.Submit(id, record.SourcePath); err == nil {
			m.queued[id] = struct{}{}
		}
	}

	m.refreshCounts()
	return nil
}

// refreshCounts pushes current cache statistics into the status bar.
func (m *Model) refreshCounts() {
	m.statusBar.SetCounts(len(m.records), m.engine.CacheSize(), m.engine.Imported())
}

// updateInspector mirrors the cursor selection into the inspector.
func (m *Model) updateInspector() {
	m.inspector.SetRecord(m.grid.SelectedRecord())
}

// updateLayout recomputes component dimensions after a resize or pane toggle.
func (m *Model) updateLayout() {
	contentHeight := m.height - ChromeHeight

	gridWidth := m.width
	if m.showInspector {
		inspectorWidth := m.width * InspectorPercent / 100
		if inspectorWidth < MinInspectorWidth {
			inspectorWidth = MinInspectorWidth
		}
		gridWidth = m.width - inspectorWidth
		m.inspector.SetSize(inspectorWidth, contentHeight)
	}

	m.grid.SetSize(gridWidth, contentHeight)
	m.grid.SetFocused(true)
	m.logView.SetSize(m.width, contentHeight)
	m.statusBar.SetSize(m.width)
}

// View renders the full application frame.
func (m Model) View() string {
	if !m.ready {
		return styles.DimStyle.Render("loading...")
	}

	var content string
	if m.showLog {
		content = m.logView.View()
	} else if m.showInspector {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.grid.View(), m.inspector.View())
	} else {
		content = m.grid.View()
	}

	// The jump bar borrows the status bar's line while open
	footer := m.statusBar.View()
	if m.jumpActive {
		footer = m.jumpInput.View()
	}

	return content + "\n" + footer
}

// closeJump dismisses the jump bar and resets its input.
func (m *Model) closeJump() {
	m.jumpActive = false
	m.jumpInput.SetValue("")
	m.jumpInput.Blur()
}
