package agent

type state int

const (
	statePrompting state = iota
	stateStreaming
	stateDeciding
	stateReading
	stateFinalized
	stateCancelled
)

func (s state) String() string {
	switch s {
	case statePrompting:
		return "prompting"
	case stateStreaming:
		return "streaming"
	case stateDeciding:
		return "deciding"
	case stateReading:
		return "reading"
	case stateFinalized:
		return "finalized"
	case stateCancelled:
		return "cancelled"
	}
	return "unknown"
}
