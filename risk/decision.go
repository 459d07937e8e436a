package risk

import "fmt"

// Verdict is the outcome of a risk evaluation.
type Verdict int

const (
	Allow Verdict = iota
	Reject
	Halt
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "ALLOW"
	case Reject:
		return "REJECT"
	case Halt:
		return "HALT"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Violation codes.
const (
	CodeHalted         = "HALTED"
	CodeDailyLossLimit = "DAILY_LOSS_LIMIT"
	CodeMaxDrawdown    = "MAX_DRAWDOWN"
	CodeNoUnits        = "NO_UNITS"
	CodeMaxPosition    = "MAX_POSITION"
)

type Decision struct {
	Verdict Verdict
	Code    string
	Reason  string
}

func (d Decision) Allowed() bool { return d.Verdict == Allow }

func (d Decision) String() string {
	if d.Code == "" {
		return d.Verdict.String()
	}
	return fmt.Sprintf("%s %s: %s", d.Verdict, d.Code, d.Reason)
}

func allow() Decision { return Decision{Verdict: Allow} }

func reject(code, format string, args ...any) Decision {
	return Decision{Verdict: Reject, Code: code, Reason: fmt.Sprintf(format, args...)}
}

func halt(code, reason string) Decision {
	return Decision{Verdict: Halt, Code: code, Reason: reason}
}
