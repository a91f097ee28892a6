package debugui

import (
	"fmt"
	"sort"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/sigecs/ecs"
)

type systemRow struct {
	Info  ecs.SystemInfo
	Stats ecs.SystemStats
}

func NewSystemViewerComponent() SystemViewerComponent {
	return SystemViewerComponent{sortAscending: true}
}

func (sv *SystemViewerComponent) Render(r *ecs.Registry) {
	if !imgui.BeginV("System Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := r.Stats()
	rows := sv.rows(r.Systems(), stats)

	imgui.Text(fmt.Sprintf("Systems: %d", stats.SystemCount))
	imgui.SameLine()
	imgui.Text(fmt.Sprintf("Ticks: %d", stats.Ticks))
	imgui.SameLine()
	imgui.Text(fmt.Sprintf("Invocations: %d", stats.TotalInvocations))
	imgui.Separator()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("SystemTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("#")
		imgui.TableSetupColumn("Name")
		imgui.TableSetupColumn("Signature")
		imgui.TableSetupColumn("Matched")
		imgui.TableSetupColumn("Avg Time")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			sv.sortColumn = int(spec.ColumnIndex())
			sv.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}

		for _, row := range rows {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Info.ID))

			imgui.TableNextColumn()
			imgui.Text(row.Info.Name)

			imgui.TableNextColumn()
			imgui.Text(row.Info.Signature.String())

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", row.Stats.LastMatched))

			imgui.TableNextColumn()
			imgui.Text(formatDuration(row.Stats.AvgDuration))
		}

		imgui.EndTable()
	}

	imgui.End()
}

// rows pairs each system with its stats and applies the current sort.
func (sv *SystemViewerComponent) rows(infos []ecs.SystemInfo, stats *ecs.SchedulerStats) []systemRow {
	rows := make([]systemRow, len(infos))
	for i, info := range infos {
		rows[i].Info = info
		if i < len(stats.Systems) {
			rows[i].Stats = stats.Systems[i]
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !sv.sortAscending {
			a, b = b, a
		}

		switch sv.sortColumn {
		case 1:
			return a.Info.Name < b.Info.Name
		case 2:
			return a.Info.Signature.String() < b.Info.Signature.String()
		case 3:
			return a.Stats.LastMatched < b.Stats.LastMatched
		case 4:
			return a.Stats.AvgDuration < b.Stats.AvgDuration
		default:
			return a.Info.ID < b.Info.ID
		}
	})

	return rows
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}
