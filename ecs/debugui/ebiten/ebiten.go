// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/plus3/sigecs/ecs"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Store it as a singleton so systems can reach the backend.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// Update runs one registry tick inside an ImGui frame. Call it from the game's
// Update method; systems registered by debugui draw during the tick.
func (b *ImguiBackend) Update(r *ecs.Registry) error {
	b.BeginFrame()
	defer b.EndFrame()
	return r.RunSystems()
}
