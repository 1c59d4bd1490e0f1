package canavar

import (
	"github.com/canavar/canavar/canavar/rt/scene"
)

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// UseSystem schedules system in the Update stage.
func (cmd *Commands) UseSystem(system systemFn) *Commands {
	cmd.app.UseSystem(System(system))
	return cmd
}

// RemoveNode defers removal of id and its subtree until the current stage ends.
func (cmd *Commands) RemoveNode(id scene.NodeID) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, id)
}

// Quit stops Run after the current frame.
func (cmd *Commands) Quit() {
	cmd.app.quit = true
}
