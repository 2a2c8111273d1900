package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zheng/gocfg/internal/analyzer"
	"github.com/zheng/gocfg/internal/cfg"
	"github.com/zheng/gocfg/internal/config"
	"github.com/zheng/gocfg/internal/export"
)

// Watcher watches for Go file changes and re-exports the CFG documents.
type Watcher struct {
	projectPath string
	cfg         *config.Config
	fsWatcher   *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Callbacks
	onExportStart func()
	onExportDone  func(modules, functions int, duration time.Duration)
	onError       func(error)

	// Control
	done chan struct{}
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnExportStart sets the callback for when an export run starts.
func WithOnExportStart(fn func()) Option {
	return func(w *Watcher) {
		w.onExportStart = fn
	}
}

// WithOnExportDone sets the callback for when an export run completes.
func WithOnExportDone(fn func(modules, functions int, duration time.Duration)) Option {
	return func(w *Watcher) {
		w.onExportDone = fn
	}
}

// WithOnError sets the callback for errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a new Watcher.
func New(projectPath string, runCfg *config.Config, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		projectPath:   projectPath,
		cfg:           runCfg,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond, // Default debounce
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	// Add all directories to watch
	if err := w.addDirs(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all directories to the watcher.
func (w *Watcher) addDirs() error {
	return filepath.Walk(w.projectPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories and common non-source directories
		name := info.Name()
		if info.IsDir() {
			if strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata" {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// eventLoop handles file system events.
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about Go files
	if !strings.HasSuffix(event.Name, ".go") {
		return
	}

	// Skip test files
	if strings.HasSuffix(event.Name, "_test.go") {
		return
	}

	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.fsWatcher.Add(event.Name)
		}
	}

	// Add to pending files and reset debounce timer
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerExport)
}

// triggerExport runs the export after debounce.
func (w *Watcher) triggerExport() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}

	if w.onExportStart != nil {
		w.onExportStart()
	}

	startTime := time.Now()

	modules, functions, err := w.runExport()
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("export failed: %w", err))
		}
		return
	}

	duration := time.Since(startTime)

	if w.onExportDone != nil {
		w.onExportDone(modules, functions, duration)
	}
}

// runExport performs one full export of the project.
func (w *Watcher) runExport() (modules, functions int, err error) {
	// Load packages
	pkgs, err := analyzer.LoadPackages(w.projectPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load packages: %w", err)
	}

	// Filter packages with source
	pkgs = analyzer.FilterSourcePackages(pkgs)
	if len(pkgs) == 0 {
		return 0, 0, fmt.Errorf("no valid Go packages found")
	}

	// Build SSA
	prog, ssaPkgs := analyzer.BuildSSA(pkgs)

	exporter := cfg.NewExporter(prog, cfg.Options{UnwrapDepth: w.cfg.UnwrapDepth})
	writer := export.NewWriter(w.cfg.OutDir, w.cfg.PerFunction, nil)

	for _, pkg := range ssaPkgs {
		if pkg == nil {
			continue
		}
		mg, err := exporter.ExportPackage(pkg)
		if err != nil {
			return modules, functions, fmt.Errorf("failed to export %s: %w", pkg.Pkg.Path(), err)
		}
		if len(mg.Functions) == 0 {
			continue
		}
		// A failed write is already logged; keep going so one bad path does
		// not stall the watch loop.
		_ = writer.WriteModule(mg)
		modules++
		functions += len(mg.Functions)
	}

	return modules, functions, nil
}
