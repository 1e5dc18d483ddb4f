package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/facedeck/facedeck/internal/channel"
	"github.com/facedeck/facedeck/internal/compute"
	"github.com/facedeck/facedeck/internal/config"
	"github.com/facedeck/facedeck/internal/decode"
	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/faceset"
	"github.com/facedeck/facedeck/internal/log"
	"github.com/facedeck/facedeck/internal/metadata"
	"github.com/facedeck/facedeck/internal/store"
	"github.com/facedeck/facedeck/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	var clearCache bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&clearCache, "clear-cache", false, "delete the persistent metadata cache and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <faces-dir>\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("facedeck %s\n", Version)
		return
	}

	if clearCache {
		if err := config.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Metadata cache cleared.")
		return
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(facesDir string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting facedeck", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg)
	}

	if facesDir == "" {
		flag.Usage()
		return fmt.Errorf("a faces directory is required")
	}
	facesDir, err = filepath.Abs(facesDir)
	if err != nil {
		return fmt.Errorf("resolve faces directory: %w", err)
	}
	if info, err := os.Stat(facesDir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", facesDir)
	}

	if cfg.Server.NodeID == "" {
		cfg.Server.NodeID = generateNodeID()
		if err := config.SaveConfig(cfg); err != nil {
			logger.Warn("failed to persist node id", "error", err)
		}
	}

	client := compute.NewClient(cfg.Server.URL, logger)

	metaStore, err := store.NewMetadataStore(config.GetCachePath())
	if err != nil {
		logger.Warn("persistent metadata store unavailable, running memory-only", "error", err)
		metaStore, _ = store.NewMetadataStore("")
	}
	defer metaStore.Close()

	engine := metadata.NewEngine(client, logger,
		metadata.WithBatchSize(cfg.Sync.BatchSize),
		metadata.WithCooldown(time.Duration(cfg.Sync.BatchCooldownMs)*time.Millisecond),
		metadata.WithStore(metaStore),
	)
	defer engine.Close()
	engine.SetDirectory(facesDir)

	// Accepted progress events flow from the websocket handler through the
	// engine's correlation filter into this channel, then into the TUI.
	events := make(chan domain.ProgressEvent, 64)
	engine.SetProgressFunc(func(ev domain.ProgressEvent) {
		select {
		case events <- ev:
		default:
			// TUI is behind; display feedback is droppable
		}
	})

	ch := channel.New(cfg.Server.URL, cfg.Server.NodeID, logger,
		channel.WithReconnectDelay(time.Duration(cfg.Channel.ReconnectDelayMs)*time.Millisecond),
		channel.WithMaxReconnects(cfg.Channel.MaxReconnects),
	)
	ch.SetHandler(func(ev domain.ProgressEvent) {
		engine.HandleEvent(ev)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch.Start(ctx)
	defer ch.Close()

	pool := decode.NewPool(cfg.Sync.DecodeWorkers, logger)
	defer pool.Close()

	changes := make(chan struct{}, 1)
	watcher, err := faceset.NewWatcher(facesDir, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}, logger)
	if err != nil {
		logger.Warn("filesystem watcher unavailable", "error", err)
	} else if err := watcher.Start(); err != nil {
		logger.Warn("filesystem watcher failed to start", "error", err)
	} else {
		defer watcher.Stop()
	}

	model := tui.NewModel(cfg, engine, client, ch, pool, events, changes, logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI", "dir", facesDir)

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *config.Config) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("not configured and stdin is not a terminal; set FACEDECK_SERVER_URL or edit the config file")
	}

	fmt.Println()
	fmt.Println("Welcome to Facedeck!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	var serverURL string
	for {
		fmt.Print("Enter your compute server URL (e.g., http://127.0.0.1:8080): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL = strings.TrimSpace(input)
		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}
		if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
			serverURL = "http://" + serverURL
		}

		fmt.Print("Checking server... ")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = compute.NewClient(serverURL, log.NullLogger()).Health(ctx)
		cancel()
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			continue
		}
		fmt.Println("✓ reachable")
		break
	}

	cfg.Server.URL = serverURL
	cfg.Server.NodeID = generateNodeID()

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run facedeck again with a faces directory to start.")
	return nil
}

// generateNodeID creates the random correlation id used to route progress
// events for this installation.
func generateNodeID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("node-%d", time.Now().UnixNano())
	}
	return "node-" + hex.EncodeToString(buf)
}
