package game

// Action is a betting action recorded for display.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
	SmallBlind
	BigBlind
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "raise", "allin", "small blind", "big blind"}[a]
}

// ActionRecord is the last action a player took on the current street.
type ActionRecord struct {
	Action Action
	Amount int
}

// Street is the current betting round.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	End
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "end"}[s]
}

// State is whether a hand is in progress.
type State int

const (
	Waiting State = iota
	Running
)

func (s State) String() string {
	return [...]string{"waiting", "running"}[s]
}
