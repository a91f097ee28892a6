package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/sigecs/ecs"
)

// Report is the end-of-run summary printed by ecs-stress.
type Report struct {
	Config       Config
	TotalUpdates int64
	TotalTime    time.Duration
	SystemErrors int

	Ticks   TickTimes
	Memory  MemoryDelta
	Systems []SystemLine
	Store   ecs.StoreStats

	memStart runtime.MemStats
}

// TickTimes holds the wall time of every RunSystems call.
type TickTimes struct {
	samples []time.Duration

	P50, P90, P99, Max time.Duration
}

// MemoryDelta is the change in runtime memory stats across the run.
type MemoryDelta struct {
	HeapAlloc     int64
	TotalAlloc    uint64
	Mallocs       uint64
	MallocsPerRun float64
	NumGC         uint32
	PauseTotal    time.Duration
}

// SystemLine is one system's share of the run. Share is the fraction of all
// measured system time spent in this system.
type SystemLine struct {
	Name        string
	Signature   string
	Invocations int64
	LastMatched int
	AvgPerTick  time.Duration
	MaxPerTick  time.Duration
	Share       float64
}

func NewReport(cfg Config) *Report {
	return &Report{Config: cfg}
}

// Start captures the memory baseline.
func (r *Report) Start() {
	runtime.ReadMemStats(&r.memStart)
}

// Record adds one tick's wall time.
func (r *Report) Record(d time.Duration) {
	r.Ticks.samples = append(r.Ticks.samples, d)
	r.TotalUpdates++
}

// Collect reads the memory delta and copies the registry's statistics into the report.
func (r *Report) Collect(reg *ecs.Registry) {
	var end runtime.MemStats
	runtime.ReadMemStats(&end)
	r.Memory = MemoryDelta{
		HeapAlloc:  int64(end.HeapAlloc) - int64(r.memStart.HeapAlloc),
		TotalAlloc: end.TotalAlloc - r.memStart.TotalAlloc,
		Mallocs:    end.Mallocs - r.memStart.Mallocs,
		NumGC:      end.NumGC - r.memStart.NumGC,
		PauseTotal: time.Duration(end.PauseTotalNs - r.memStart.PauseTotalNs),
	}
	if r.TotalUpdates > 0 {
		r.Memory.MallocsPerRun = float64(r.Memory.Mallocs) / float64(r.TotalUpdates)
	}

	r.Ticks.finalize()
	r.Systems = systemLines(reg)
	r.Store = reg.Store().CollectStats()
}

func (t *TickTimes) finalize() {
	if len(t.samples) == 0 {
		return
	}
	sorted := slices.Clone(t.samples)
	slices.Sort(sorted)

	at := func(q float64) time.Duration {
		return sorted[int(q*float64(len(sorted)-1))]
	}
	t.P50, t.P90, t.P99 = at(0.50), at(0.90), at(0.99)
	t.Max = sorted[len(sorted)-1]
}

func systemLines(reg *ecs.Registry) []SystemLine {
	infos := reg.Systems()
	stats := reg.Stats()

	var total time.Duration
	for _, s := range stats.Systems {
		total += s.TotalDuration
	}

	lines := make([]SystemLine, len(infos))
	for i, info := range infos {
		s := stats.Systems[i]
		lines[i] = SystemLine{
			Name:        info.Name,
			Signature:   info.Signature.String(),
			Invocations: s.Invocations,
			LastMatched: s.LastMatched,
			AvgPerTick:  s.AvgDuration,
			MaxPerTick:  s.MaxDuration,
		}
		if total > 0 {
			lines[i].Share = float64(s.TotalDuration) / float64(total)
		}
	}
	return lines
}

const reportTemplate = `
# ECS Stress Test Report

## Run
- **Duration:** {{.Config.Duration}} ({{.TotalTime}} measured)
- **Initial Entities:** {{.Config.Entities}}, seed {{.Config.Seed}}
- **Error Policy:** {{.Config.ErrorPolicy}} ({{.SystemErrors}} failed ticks)
- **Ticks:** {{.TotalUpdates}}
- **Tick Time:** p50 {{.Ticks.P50}}, p90 {{.Ticks.P90}}, p99 {{.Ticks.P99}}, max {{.Ticks.Max}}

## Systems
| System | Signature | Invocations | Last Matched | Avg/Tick | Max/Tick | Share |
|---|---|---|---|---|---|---|
{{- range .Systems}}
| {{.Name}} | {{.Signature}} | {{.Invocations}} | {{.LastMatched}} | {{.AvgPerTick}} | {{.MaxPerTick}} | {{pct .Share}} |
{{- end}}

## Store
- **Live Entities:** {{.Store.TotalEntityCount}}
- **Components:** {{.Store.ComponentCount}}
{{- range .Store.ComponentBreakdown}}
  - {{.Type}}: {{.InstanceCount}} ({{kib .Bytes}} KiB)
{{- end}}
- **Singletons:** {{join .Store.SingletonTypes}}

## Memory
- **Heap Growth:** {{.Memory.HeapAlloc}} bytes
- **Allocated:** {{.Memory.TotalAlloc}} bytes in {{.Memory.Mallocs}} objects ({{printf "%.1f" .Memory.MallocsPerRun}} per tick)
{{- if .Config.GCPauseMetrics}}
- **GC Cycles:** {{.Memory.NumGC}}, total pause {{.Memory.PauseTotal}}
{{- end}}
`

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(f float64) string {
		return fmt.Sprintf("%.1f%%", f*100)
	},
	"kib": func(v uintptr) string {
		return fmt.Sprintf("%.2f", float64(v)/1024)
	},
	"join": func(names []string) string {
		if len(names) == 0 {
			return "none"
		}
		return fmt.Sprint(names)
	},
}).Parse(reportTemplate))

func (r *Report) Generate(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}
