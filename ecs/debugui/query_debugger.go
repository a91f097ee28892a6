package debugui

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/sigecs/ecs"
)

const maxListedMatches = 50

func NewQueryDebuggerComponent() QueryDebuggerComponent {
	return QueryDebuggerComponent{
		selectedComponentTypes: make(map[string]bool),
	}
}

// Render lets the user tick component types and lists the entities holding all
// of them. Clicking a match selects it for the component inspector.
func (qd *QueryDebuggerComponent) Render(store *ecs.Store, selection *Selection) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		qd.selectedComponentTypes = make(map[string]bool)
	}

	for _, name := range componentTypeNames(store) {
		selected := qd.selectedComponentTypes[name]
		if imgui.Checkbox(name, &selected) {
			if selected {
				qd.selectedComponentTypes[name] = true
			} else {
				delete(qd.selectedComponentTypes, name)
			}
		}
	}

	imgui.Separator()

	selectedTypes := qd.selectedTypes(store)
	if len(selectedTypes) == 0 {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	matches := store.EntitiesWith(selectedTypes...)
	imgui.Text(fmt.Sprintf("Matching Entities: %d", len(matches)))

	if imgui.TreeNodeStr("Matches") {
		for i, e := range matches {
			if i == maxListedMatches {
				imgui.Text(fmt.Sprintf("... %d more", len(matches)-maxListedMatches))
				break
			}
			if imgui.SelectableBoolV(fmt.Sprintf("%d", e), selection.Entity == e, imgui.SelectableFlagsNone, imgui.NewVec2(0, 0)) {
				selection.Entity = e
			}
		}
		imgui.TreePop()
	}

	imgui.End()
}

// selectedTypes maps the ticked names back to registered types, in
// registration order. Names no longer registered are ignored.
func (qd *QueryDebuggerComponent) selectedTypes(store *ecs.Store) []reflect.Type {
	var types []reflect.Type
	for _, ct := range store.RegisteredTypes() {
		if qd.selectedComponentTypes[ct.Type.String()] {
			types = append(types, ct.Type)
		}
	}
	return types
}

func componentTypeNames(store *ecs.Store) []string {
	registered := store.RegisteredTypes()
	names := make([]string, len(registered))
	for i, ct := range registered {
		names[i] = ct.Type.String()
	}
	sort.Strings(names)
	return names
}
