package workflow

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/sliceutil"
	"golang.org/x/mod/semver"
)

var actionPinsLog = logger.New("workflow:action_pins")

//go:embed data/action_pins.json
var actionPinsJSON []byte

// ActionPin is an action version the compiled workflows reference.
type ActionPin struct {
	Repo    string `json:"repo"`    // e.g., "actions/checkout"
	Version string `json:"version"` // e.g., "v4"
}

// ActionPinsData represents the structure of the embedded JSON file
type ActionPinsData struct {
	Entries map[string]ActionPin `json:"entries"` // key: "repo@version"
}

var (
	cachedActionPins []ActionPin
	actionPinsOnce   sync.Once
)

// getActionPins returns the embedded pins sorted by repo, then version
// descending. The data is parsed once.
func getActionPins() []ActionPin {
	actionPinsOnce.Do(func() {
		var data ActionPinsData
		if err := json.Unmarshal(actionPinsJSON, &data); err != nil {
			panic(fmt.Sprintf("failed to load action pins: %v", err))
		}

		pins := make([]ActionPin, 0, len(data.Entries))
		for key, pin := range data.Entries {
			if idx := strings.LastIndex(key, "@"); idx != -1 && key[idx+1:] != pin.Version {
				actionPinsLog.Printf("WARNING: Key/version mismatch in action_pins.json: key=%s version=%s", key, pin.Version)
			}
			pins = append(pins, pin)
		}
		sort.Slice(pins, func(i, j int) bool {
			if pins[i].Repo != pins[j].Repo {
				return pins[i].Repo < pins[j].Repo
			}
			return semver.Compare(pins[i].Version, pins[j].Version) > 0
		})
		actionPinsLog.Printf("Loaded %d action pins", len(pins))
		cachedActionPins = pins
	})
	return cachedActionPins
}

// GetActionPin returns "repo@version" for the latest pinned version of repo.
// It panics for repositories without a pin; every action the compiler
// emits must be listed in data/action_pins.json.
func GetActionPin(actionRepo string) string {
	matching := sliceutil.Filter(getActionPins(), func(pin ActionPin) bool {
		return pin.Repo == actionRepo
	})
	if len(matching) == 0 {
		panic("no action pin for " + actionRepo)
	}
	return actionRepo + "@" + matching[0].Version
}
