package pipeline

import (
	"fmt"
	"slices"
)

// EventName is a version-control event that can trigger a pipeline run.
type EventName string

const (
	EventPush        EventName = "push"
	EventPullRequest EventName = "pull_request"
)

// Event is the trigger of one pipeline run. For pushes Branch is the pushed
// branch; for pull requests it is the head (source) branch.
type Event struct {
	Name   EventName `json:"name"`
	Branch string    `json:"branch"`
}

// ParseEventName accepts the two supported event names.
func ParseEventName(name string) (EventName, error) {
	switch EventName(name) {
	case EventPush, EventPullRequest:
		return EventName(name), nil
	case "pull-request":
		return EventPullRequest, nil
	}
	return "", fmt.Errorf("unsupported event %q (expected %q or %q)", name, EventPush, EventPullRequest)
}

func (e Event) String() string {
	if e.Branch == "" {
		return string(e.Name)
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Branch)
}

// Matches reports whether e triggers a pipeline with these triggers. Push
// events must target one of the configured branches; pull requests are not
// filtered by branch.
func (t Triggers) Matches(e Event) bool {
	switch e.Name {
	case EventPush:
		return slices.Contains(t.Push.Branches, e.Branch)
	case EventPullRequest:
		return t.PullRequestEnabled()
	}
	return false
}
