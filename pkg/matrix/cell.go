// Package matrix runs the test pipeline: one isolated execution per
// (platform, interpreter version) combination.
package matrix

import (
	"runtime"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/google/uuid"
)

var cellLog = logger.New("matrix:cell")

// Cell is one (platform, version) coordinate of the matrix.
type Cell struct {
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

func (c Cell) String() string {
	return c.Platform + " / " + c.Version
}

// slug is a filesystem-safe identifier for the cell.
func (c Cell) slug() string {
	return strings.NewReplacer("/", "-", " ", "-", "\\", "-").Replace(c.Platform + "-" + c.Version)
}

// Axes are the two dimensions the matrix is the cross product of.
type Axes struct {
	Platforms []string
	Versions  []string
}

// AxesFrom reads the axes of a test pipeline.
func AxesFrom(cfg pipeline.TestPipeline) Axes {
	return Axes{Platforms: cfg.Platforms, Versions: cfg.Versions}
}

// Expand returns the cross product of the axes, platform-major. Duplicate
// axis values collapse so each combination appears exactly once.
func Expand(axes Axes) []Cell {
	platforms := dedupe(axes.Platforms)
	versions := dedupe(axes.Versions)

	cells := make([]Cell, 0, len(platforms)*len(versions))
	for _, p := range platforms {
		for _, v := range versions {
			cells = append(cells, Cell{Platform: p, Version: v})
		}
	}
	cellLog.Printf("Expanded %d platforms x %d versions into %d cells", len(platforms), len(versions), len(cells))
	return cells
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Run is one triggering of the test pipeline.
type Run struct {
	ID    string
	Event pipeline.Event
	Cells []Cell
}

// NewRun creates a run with a fresh identifier.
func NewRun(event pipeline.Event, cells []Cell) *Run {
	return &Run{ID: uuid.NewString(), Event: event, Cells: cells}
}

// PlatformOS maps a runner label to the GOOS it denotes. Unknown labels
// (self-hosted runners) map to "".
func PlatformOS(platform string) string {
	switch {
	case strings.HasPrefix(platform, "ubuntu"):
		return "linux"
	case strings.HasPrefix(platform, "macos"):
		return "darwin"
	case strings.HasPrefix(platform, "windows"):
		return "windows"
	}
	return ""
}

// hostOS is swapped in tests.
var hostOS = runtime.GOOS

// RunnableOnHost reports whether a cell's platform can execute on this
// machine. Unknown labels are assumed to be the host.
func RunnableOnHost(platform string) bool {
	goos := PlatformOS(platform)
	return goos == "" || goos == hostOS
}
