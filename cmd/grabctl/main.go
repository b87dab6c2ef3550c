// Package main provides grabctl, an interactive console for driving the
// grab overlay against a live browser page. It attaches a Playwright page,
// wires the engine over it and exposes hover, grab and prompt commands in a
// terminal UI.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/grab/pkg/config"
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/engine"
	"github.com/entrhq/grab/pkg/logging"
	"github.com/entrhq/grab/pkg/types"
)

const version = "0.1.0"

// Config holds the application configuration.
type Config struct {
	URL         string
	ConfigPath  string
	Headful     bool
	ShowVersion bool
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.URL, "url", "", "page to attach to (required)")
	flag.StringVar(&cfg.ConfigPath, "config", "", "config file path (default ~/.grab/config.yaml)")
	flag.BoolVar(&cfg.Headful, "headful", false, "run the browser with a visible window")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print the version and exit")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if cfg.ShowVersion {
		fmt.Printf("grabctl v%s\n", version)
		return
	}
	if cfg.URL == "" {
		fmt.Fprintln(os.Stderr, "usage: grabctl -url <page> [-config <path>] [-headful]")
		os.Exit(2)
	}

	logger, err := logging.NewLogger("grabctl")
	if err != nil {
		log.Fatalf("logging setup failed: %v", err)
	}
	defer logger.Close()

	store, err := config.NewFileStore(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("config store: %v", err)
	}
	file, err := store.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		log.Fatalf("playwright start failed (try 'playwright install'): %v", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!cfg.Headful),
	})
	if err != nil {
		log.Fatalf("browser launch: %v", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		log.Fatalf("page open: %v", err)
	}
	if _, err := page.Goto(cfg.URL); err != nil {
		log.Fatalf("navigation to %s failed: %v", cfg.URL, err)
	}

	ignore, err := config.CompileIgnoreMatcher(file.Options.IgnoreSelectors)
	if err != nil {
		log.Fatalf("ignore selectors: %v", err)
	}

	adapter := dom.NewPageAdapter(page,
		dom.WithHostClipboard(dom.HostClipboard{}),
		dom.WithGrabbablePredicate(dom.NewGrabbablePredicate(ignore)),
		dom.WithLogger(logger),
	)
	defer adapter.Close()

	broadcaster := types.NewBroadcaster()

	m := newModel(cfg.URL, file.Theme)
	program := tea.NewProgram(m, tea.WithAltScreen())

	eng, err := engine.New(adapter,
		engine.WithOptions(file.Options),
		engine.WithTheme(file.Theme),
		engine.WithBroadcaster(broadcaster),
		engine.WithLogger(logger),
		engine.WithCallbacks(engine.Callbacks{
			OnStateChange: func(state engine.State) {
				program.Send(stateMsg{state: state})
			},
			OnCopySuccess: func(text string) {
				program.Send(copiedMsg{text: text})
			},
			OnCopyError: func(err error) {
				program.Send(copyErrMsg{err: err})
			},
			OnOpenFile: func(file string, line int) {
				program.Send(sourceMsg{file: file, line: line})
			},
		}),
	)
	if err != nil {
		log.Fatalf("engine setup: %v", err)
	}
	defer eng.Dispose()
	m.engine = eng

	// Relay page-global grab events into the console.
	events, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()
	go func() {
		for event := range events {
			program.Send(grabEventMsg{event: event})
		}
	}()

	if _, err := program.Run(); err != nil {
		log.Fatalf("console error: %v", err)
	}
}
