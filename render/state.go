package render

import "fmt"

// State is a stage of page rendering pipeline.
type State int

const (
	StateUnprocessed State = iota
	// StateHoisted: directives turned into blocks, "set self" applied.
	StateHoisted
	// StateRendered: blocks expanded, loop clones still share IDs.
	StateRendered
	// StateRemapped: every clone got fresh IDs.
	StateRemapped
	// StateSpaced: clones moved so they do not overlap.
	StateSpaced
	StateDone
	// StateHidden: page showif was falsy and page was removed.
	StateHidden
)

var stateNames = map[State]string{
	StateUnprocessed: "unprocessed",
	StateHoisted:     "directive hoisted",
	StateRendered:    "rendered",
	StateRemapped:    "id remapped",
	StateSpaced:      "spaced",
	StateDone:        "done",
	StateHidden:      "hidden",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}
