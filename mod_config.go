package canavar

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/canavar/canavar/canavar/rt/terrain"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type TerrainConfig struct {
	Grid     terrain.GridConfig `yaml:"grid"`
	Document terrain.Document   `yaml:"document"`
	Budget   uint64             `yaml:"budget"`
}

type PickingConfig struct {
	VertexRadius int    `yaml:"vertex_radius"`
	SnapshotPath string `yaml:"snapshot_path"`
}

type CameraConfig struct {
	Speed           float32    `yaml:"speed"`
	Sensitivity     float32    `yaml:"sensitivity"`
	Fov             float32    `yaml:"fov"`
	GroundClearance float32    `yaml:"ground_clearance"`
	Position        [3]float32 `yaml:"position"`
}

// EditorConfig is the editor's YAML settings file.
type EditorConfig struct {
	Window  WindowConfig  `yaml:"window"`
	Terrain TerrainConfig `yaml:"terrain"`
	Picking PickingConfig `yaml:"picking"`
	Camera  CameraConfig  `yaml:"camera"`
}

func DefaultConfig() EditorConfig {
	return EditorConfig{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "Canavar"},
		Terrain: TerrainConfig{
			Grid:     terrain.DefaultGridConfig(),
			Document: terrain.DefaultDocument(),
		},
		Picking: PickingConfig{VertexRadius: 5, SnapshotPath: "identity.png"},
		Camera: CameraConfig{
			Speed:           10,
			Sensitivity:     0.003,
			Fov:             60,
			GroundClearance: 2,
			Position:        [3]float32{0, 50, 0},
		},
	}
}

func (c EditorConfig) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if err := c.Terrain.Grid.Validate(); err != nil {
		return errors.Wrap(err, "terrain grid")
	}
	if err := c.Terrain.Document.Params.Validate(); err != nil {
		return errors.Wrap(err, "terrain")
	}
	if c.Picking.VertexRadius < 0 {
		return errors.Errorf("vertex radius %d < 0", c.Picking.VertexRadius)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return errors.Errorf("camera fov %v", c.Camera.Fov)
	}
	return nil
}

// ParseConfig decodes data over the defaults, so absent keys keep their default.
func ParseConfig(data []byte) (EditorConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

func LoadConfig(path string) (EditorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrap(err, "read config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// LoadOrCreateConfig loads path, writing the defaults there when the file does not exist.
// Any other failure returns the defaults with the error and leaves the file alone.
func LoadOrCreateConfig(path string) (cfg EditorConfig, created bool, err error) {
	cfg, err = LoadConfig(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), false, err
	}
	cfg = DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		return cfg, false, err
	}
	return cfg, true, nil
}

func SaveConfig(path string, cfg EditorConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write config")
}

// Modules returns the editor modules configured by c, in install order. The window,
// GPU and render modules are left to the caller.
func (c EditorConfig) Modules() []Module {
	terrainModule := NewTerrainModule()
	terrainModule.Grid = c.Terrain.Grid
	terrainModule.Document = c.Terrain.Document
	terrainModule.Budget = c.Terrain.Budget

	pickingModule := NewPickingModule()
	pickingModule.VertexRadius = c.Picking.VertexRadius
	pickingModule.SnapshotPath = c.Picking.SnapshotPath
	pickingModule.Width, pickingModule.Height = c.Window.Width, c.Window.Height

	return []Module{
		TimeModule{},
		HierarchyModule{CameraPosition: mgl32.Vec3(c.Camera.Position)},
		cameraConfigModule{c.Camera},
		terrainModule,
		FlyingCameraModule{GroundClearance: c.Camera.GroundClearance},
		pickingModule,
	}
}

// cameraConfigModule applies lens and speed settings to the active camera.
type cameraConfigModule struct {
	CameraConfig
}

func (m cameraConfigModule) Install(app *App, cmd *Commands) {
	if cam, ok := Resource[ActiveCamera](app); ok {
		m.apply(cam)
	}
}

func (m CameraConfig) apply(cam *ActiveCamera) {
	s := cam.State()
	s.Speed = m.Speed
	s.Sensitivity = m.Sensitivity
	s.VerticalFov = m.Fov
}

// ConfigWatchModule reloads Path when it changes on disk. Reloads are applied on the
// main thread at the start of a frame; an invalid file is logged and ignored.
type ConfigWatchModule struct {
	Path string
}

// ConfigWatcher forwards file events from fsnotify to the frame loop.
type ConfigWatcher struct {
	Path    string
	Current EditorConfig
	Reloads int

	watcher *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
	log     Logger
}

func NewConfigWatcher(path string, current EditorConfig, log Logger) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "config path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config watcher")
	}
	// Watch the directory so a replaced file is still seen.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	cw := &ConfigWatcher{
		Path:    abs,
		Current: current,
		watcher: w,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     log,
	}
	go cw.watch()
	return cw, nil
}

func (cw *ConfigWatcher) watch() {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case cw.changed <- struct{}{}:
			default:
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warnf("config: watch: %v", err)
		}
	}
}

// Poll reports a pending change without blocking. Bursts of events collapse into one.
func (cw *ConfigWatcher) Poll() bool {
	select {
	case <-cw.changed:
		return true
	default:
		return false
	}
}

// Reload reads the file and keeps it as Current if valid.
func (cw *ConfigWatcher) Reload() (EditorConfig, error) {
	cfg, err := LoadConfig(cw.Path)
	if err != nil {
		return cw.Current, err
	}
	cw.Current = cfg
	cw.Reloads++
	return cfg, nil
}

func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}

func (m ConfigWatchModule) Install(app *App, cmd *Commands) {
	current, err := LoadConfig(m.Path)
	if err != nil {
		app.Logger().Warnf("config: %v, using defaults", err)
	}
	cw, err := NewConfigWatcher(m.Path, current, app.Logger())
	if err != nil {
		panic(err)
	}
	cmd.AddResources(cw)

	apply := applyConfig(app)
	app.UseSystem(
		System(func(cw *ConfigWatcher) {
			if !cw.Poll() {
				return
			}
			cfg, err := cw.Reload()
			if err != nil {
				cw.log.Errorf("config: %v", err)
				return
			}
			cw.log.Infof("config: reloaded %s", cw.Path)
			apply(cfg)
		}).InStage(Prelude),
	)
}

// applyConfig returns a function pushing the live settings of cfg into whichever
// modules are installed. Window size and grid layout only apply on restart.
func applyConfig(app *App) func(cfg EditorConfig) {
	ts, _ := Resource[TerrainState](app)
	ps, _ := Resource[PickingState](app)
	cam, _ := Resource[ActiveCamera](app)
	log := app.Logger()

	return func(cfg EditorConfig) {
		if ts != nil {
			if err := ts.Apply(cfg.Terrain.Document); err != nil {
				log.Errorf("config: terrain: %v", err)
			}
		}
		if ps != nil {
			ps.Resolver.SetVertexRadius(cfg.Picking.VertexRadius)
			ps.snapshotPath = cfg.Picking.SnapshotPath
		}
		if cam != nil {
			cfg.Camera.apply(cam)
		}
	}
}
