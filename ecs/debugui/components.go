package debugui

import (
	"github.com/plus3/sigecs/ecs"
)

// Selection is a singleton holding the entity picked in the entity browser.
type Selection struct {
	Entity ecs.Entity
}

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	inspected ecs.Entity
}

type SystemViewerComponent struct {
	sortColumn    int
	sortAscending bool
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}

type QueryDebuggerComponent struct {
	selectedComponentTypes map[string]bool
}
