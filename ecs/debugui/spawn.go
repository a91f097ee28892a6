package debugui

import "github.com/plus3/sigecs/ecs"

type entityBrowserView struct {
	Window *EntityBrowserComponent
}

type componentInspectorView struct {
	Window *ComponentInspectorComponent
}

type systemViewerView struct {
	Window *SystemViewerComponent
}

type performanceStatsView struct {
	Window *PerformanceStatsComponent
}

type queryDebuggerView struct {
	Window *QueryDebuggerComponent
}

// SpawnDebugUI creates one entity per debug window and registers the systems
// that draw them. Windows share the Selection singleton, so picking an entity
// in the browser or query debugger shows it in the inspector. The systems call
// into imgui and must only run between the backend's BeginFrame and EndFrame.
func SpawnDebugUI(r *ecs.Registry) error {
	store := r.Store()
	selection := ecs.NewSingleton[Selection](store)
	timer := ecs.NewSingleton(store, *NewFrameTimer())

	windows := []func(ecs.Entity) error{
		func(e ecs.Entity) error { return ecs.AddComponent(store, e, NewEntityBrowserComponent(100)) },
		func(e ecs.Entity) error { return ecs.AddComponent(store, e, NewComponentInspectorComponent()) },
		func(e ecs.Entity) error { return ecs.AddComponent(store, e, NewSystemViewerComponent()) },
		func(e ecs.Entity) error { return ecs.AddComponent(store, e, NewPerformanceStatsComponent(120)) },
		func(e ecs.Entity) error { return ecs.AddComponent(store, e, NewQueryDebuggerComponent()) },
	}
	for _, add := range windows {
		if err := add(r.CreateEntity()); err != nil {
			return err
		}
	}

	ecs.RegisterSystem(r, "debugui.entity_browser", func(r *ecs.Registry, _ ecs.Entity, c entityBrowserView) error {
		c.Window.Render(r, selection.Get())
		return nil
	})
	ecs.RegisterSystem(r, "debugui.component_inspector", func(r *ecs.Registry, _ ecs.Entity, c componentInspectorView) error {
		c.Window.Render(r.Store(), selection.Get())
		return nil
	})
	ecs.RegisterSystem(r, "debugui.system_viewer", func(r *ecs.Registry, _ ecs.Entity, c systemViewerView) error {
		c.Window.Render(r)
		return nil
	})
	ecs.RegisterSystem(r, "debugui.performance_stats", func(r *ecs.Registry, _ ecs.Entity, c performanceStatsView) error {
		c.Window.Render(r, timer.Get().GetDeltaTime())
		return nil
	})
	ecs.RegisterSystem(r, "debugui.query_debugger", func(r *ecs.Registry, _ ecs.Entity, c queryDebuggerView) error {
		c.Window.Render(r.Store(), selection.Get())
		return nil
	})

	r.Logger().Debug("spawned debug ui")
	return nil
}
