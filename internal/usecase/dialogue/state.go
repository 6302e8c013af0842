package dialogue

// State is a slot-filling state. It is derived from history on every request.
type State int

const (
	Start State = iota
	NeedName
	NeedPhone
	BothCollected
	Interrupted
)

var stateNames = [...]string{"start", "need_name", "need_phone", "both_collected", "interrupted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Transition is one FSM step.
type Transition struct {
	From State
	To   State
}
