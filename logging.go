package canavar

import (
	"github.com/canavar/canavar/canavar/rt/core"
)

type Logger = core.Logger

// LoggingModule installs a default logger as a resource.
type LoggingModule struct {
	Prefix string
	Debug  bool
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	logger := core.NewDefaultLogger(m.Prefix, m.Debug)
	app.addResources(logger)
}

// Logger returns the first Logger resource if present, otherwise a no-op logger.
// Safe to call at any time; never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return core.NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return core.NewNopLogger()
}
