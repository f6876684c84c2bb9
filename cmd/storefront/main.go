// cmd/storefront/main.go
//
// This is the entry point for the storefront CLI.
//
// Flow:
// 1. Create .storefront/ in the project directory and load its config
// 2. Open the logbook and the blob store that holds the cart
// 3. Launch the TUI; the cart hydrates in the background
// 4. On exit, flush the cart and close the store

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/config"
	"github.com/kingrea/storefront/internal/logbook"
	"github.com/kingrea/storefront/internal/logging"
	"github.com/kingrea/storefront/internal/storage"
	"github.com/kingrea/storefront/internal/tui"
)

func main() {
	os.Exit(storefront())
}

// storefront wires everything together and returns the exit code once the
// deferred cleanup has run.
func storefront() int {
	projectDir := flag.String("dir", "", "project directory holding .storefront (defaults to cwd)")
	ephemeral := flag.Bool("ephemeral", false, "keep the cart in memory only")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}

	if err := config.InitStorefrontDir(absoluteProject); err != nil {
		die("init .storefront: %v", err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}
	if *ephemeral {
		cfg.Project.Storage = config.StorageConfig{Driver: storage.DriverMemory}
	}

	logger, err := logging.New(absoluteProject)
	if err != nil {
		die("open log: %v", err)
	}
	lb := logbook.FromLogger(logger)
	defer lb.Close()

	blobs, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		die("open %s storage: %v", cfg.Project.Storage.Driver, err)
	}
	defer blobs.Close()
	lb.Info("Storage · %s %s", cfg.Project.Storage.Driver, cfg.Project.Storage.Path)

	store := cart.NewStore(blobs, cart.WithLogger(lb))
	// Runs before blobs.Close so the last snapshot is flushed.
	defer store.Close()

	if err := run(cfg, store, lb); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		lb.Error("TUI exited: %v", err)
		return 1
	}
	return 0
}

// run blocks until the user quits.
func run(cfg *config.Config, store *cart.Store, lb *logbook.Logbook) error {
	app, err := tui.NewApp(cfg, store, tui.WithLogbook(lb))
	if err != nil {
		return err
	}
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "storefront: "+format+"\n", args...)
	os.Exit(1)
}
