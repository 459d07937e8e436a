package gate

import "fmt"

// State is the execution gate's position in its per-tick state machine.
//
//	Idle -> Ready -> OrderPending -> Idle       normal trade
//	Idle -> Ready -> Idle                       nothing to do or rejected
//	Ready -> Halting -> Flattened               risk breach
//	any -> Stopped                              outside the trading window
type State int

const (
	Idle State = iota
	Ready
	OrderPending
	Halting
	Flattened
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Ready:
		return "READY"
	case OrderPending:
		return "ORDER_PENDING"
	case Halting:
		return "HALTING"
	case Flattened:
		return "FLATTENED"
	case Stopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
