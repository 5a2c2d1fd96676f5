// Package launcher runs the HTTP server alongside the background shard
// workers (counter flush, runtime-event flush, reconciliation sweep) under
// one process, returning once all of them have returned.
package launcher

import (
	"fmt"
	"sync"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// App is anything launcher can run; Run blocks until the App is done.
type App interface {
	Run()
}

// Launcher holds the set of Apps to run concurrently.
type Launcher struct {
	Logger  mlog.Logger
	apps    map[string]App
	wg      *sync.WaitGroup
	Verbose bool
}

// LauncherOption configures a Launcher.
type LauncherOption func(l *Launcher)

// NewLauncher builds a Launcher from the given options.
func NewLauncher(opts ...LauncherOption) *Launcher {
	launcher := &Launcher{
		wg:   &sync.WaitGroup{},
		apps: make(map[string]App),
	}

	for _, opt := range opts {
		opt(launcher)
	}

	if launcher.Logger == nil {
		launcher.Logger = &mlog.GoLogger{Level: mlog.InfoLevel}
	}

	return launcher
}

// WithLogger sets the Launcher's logger.
func WithLogger(logger mlog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// RunApp registers a named App to be started by Run.
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		l.apps[name] = app
	}
}

// Run starts every registered App in its own goroutine and blocks until all
// of them return.
func (l *Launcher) Run() {
	l.Logger.Info(fmt.Sprintf("starting %d services", len(l.apps)))

	for name, app := range l.apps {
		l.wg.Add(1)

		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Info("service started: " + name)
			app.Run()
			l.Logger.Info("service stopped: " + name)
		}(name, app)
	}

	l.wg.Wait()
}
