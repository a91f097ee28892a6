// Package debugui provides immediate-mode GUI integration for ECS applications using Dear ImGui.
// Every window is an ordinary component on an entity and is drawn by an ordinary system,
// so the debug UI runs inside the same tick as the rest of the registry.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/sigecs/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a singleton component.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

type imguiItemView struct {
	Item ecs.ReadOnly[ImguiItem]
}

// RegisterImguiSystem registers the system that queues every ImguiItem's render
// function for the end of the tick and refreshes the ImguiInputState singleton.
func RegisterImguiSystem(r *ecs.Registry) ecs.SystemID {
	state := ecs.NewSingleton[ImguiInputState](r.Store())
	return ecs.RegisterSystem(r, "debugui.imgui", func(r *ecs.Registry, _ ecs.Entity, c imguiItemView) error {
		s := state.Get()
		s.WantCaptureMouse = imgui.CurrentIO().WantCaptureMouse()
		s.WantCaptureKeyboard = imgui.CurrentIO().WantCaptureKeyboard()

		if render := c.Item.Get().Render; render != nil {
			r.Commands().Defer(render)
		}
		return nil
	})
}
