package main

import (
	"flag"
	"runtime"

	"github.com/canavar/canavar"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "canavar.yaml", "Editor settings (YAML), reloaded on change")
	debug := flag.Bool("debug", false, "Enable debug logging")
	width := flag.Int("width", 0, "Window width, overrides the config")
	height := flag.Int("height", 0, "Window height, overrides the config")
	flag.Parse()

	logging := canavar.LoggingModule{Prefix: "canavar", Debug: *debug}

	cfg, created, err := canavar.LoadOrCreateConfig(*configPath)
	if *width > 0 {
		cfg.Window.Width = *width
	}
	if *height > 0 {
		cfg.Window.Height = *height
	}

	app := canavar.NewApp()
	app.UseModules(
		logging,
		canavar.NewPlatformWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title),
		canavar.GpuModule{},
		canavar.InputModule{},
	)
	app.UseModules(cfg.Modules()...)
	app.UseModules(
		canavar.ConfigWatchModule{Path: *configPath},
		canavar.NewRenderModule(),
	)
	switch {
	case err != nil:
		app.Logger().Errorf("config: %v, running with defaults", err)
	case created:
		app.Logger().Infof("config: wrote defaults to %s", *configPath)
	}

	defer release(app)
	app.Run()
}

func release(app *canavar.App) {
	if cw, ok := canavar.Resource[canavar.ConfigWatcher](app); ok {
		cw.Close()
	}
	if r, ok := canavar.Resource[canavar.Renderer](app); ok {
		r.Release()
	}
	if ts, ok := canavar.Resource[canavar.TerrainState](app); ok {
		ts.Grid.Release()
	}
	if ps, ok := canavar.Resource[canavar.PickingState](app); ok && ps.Targets != nil {
		ps.Targets.Release()
	}
	if gs, ok := canavar.Resource[canavar.GpuState](app); ok {
		gs.Release()
	}
	if ws, ok := canavar.Resource[canavar.WindowState](app); ok {
		ws.Destroy()
	}
}
