package canavar

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/canavar/canavar/canavar/rt/scene"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	frame     uint64
	quit      bool

	// Command Buffering
	pendingRemovals []scene.NodeID
}

func NewApp() *App {
	app := &App{
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
	}
	for _, stage := range defaultStages {
		app.stages = append(app.stages, stage)
		app.systems[stage.Name] = make([]systemFn, 0)
	}
	return app
}

// UseModules installs modules in order. Later modules see the resources of earlier ones.
func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
		app.modules = append(app.modules, module)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Frame is the number of completed Step calls.
func (app *App) Frame() uint64 { return app.frame }

func (app *App) Quitting() bool { return app.quit }

func (app *App) Run() {
	app.Logger().Infof("running %d modules in %d stages", len(app.modules), len(app.stages))
	for !app.quit {
		app.Step()
	}
	app.Logger().Infof("stopped after %d frames", app.frame)
}

// Step runs every stage once, flushing deferred commands after each stage.
func (app *App) Step() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
	app.frame++
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) hasResource(t reflect.Type) bool {
	_, ok := app.resources[t]
	return ok
}

// Resource returns the resource of type *T, if installed.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s: argument %d (%s) is not a pointer",
				runtime.FuncForPC(systemValue.Pointer()).Name(), i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

// FlushCommands applies deferred node removals. Removing a node also removes its
// subtree; ids already gone are skipped.
func (app *App) FlushCommands() {
	if len(app.pendingRemovals) == 0 {
		return
	}
	graph, ok := Resource[scene.Graph](app)
	if !ok {
		app.Logger().Warnf("dropping %d node removals: no scene graph", len(app.pendingRemovals))
		app.pendingRemovals = app.pendingRemovals[:0]
		return
	}

	for _, id := range app.pendingRemovals {
		n, ok := graph.Lookup(id)
		if !ok {
			continue
		}
		removed := graph.Remove(n)
		app.Logger().Debugf("flush: removed node %d (%d total)", id, len(removed))
	}
	app.pendingRemovals = app.pendingRemovals[:0]
}
