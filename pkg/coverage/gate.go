// Package coverage decides which matrix cell submits coverage and submits it.
package coverage

import (
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/workflow"
)

var gateLog = logger.New("coverage:gate")

// Gate designates the single (platform, version) cell allowed to upload
// coverage in a run.
type Gate struct {
	Platform string
	Version  string
}

// NewGate builds the gate from the test pipeline configuration.
func NewGate(cfg pipeline.CoverageConfig) Gate {
	return Gate{Platform: cfg.Platform, Version: cfg.Version}
}

// Allows is the conjunction of the two equality checks. It has no other
// behavior: a false result means the upload step does not happen at all.
func (g Gate) Allows(platform, version string) bool {
	allowed := platform == g.Platform && version == g.Version
	gateLog.Printf("Gate (%s, %s) for cell (%s, %s): %v", g.Platform, g.Version, platform, version, allowed)
	return allowed
}

// Condition renders the same predicate as a GitHub Actions step condition.
func (g Gate) Condition() string {
	return workflow.BuildCoverageGate(g.Platform, g.Version).Render()
}
