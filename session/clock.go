package session

import "time"

// Clock decides whether trading is allowed at a given instant and rolls the
// session when the calendar day changes.
type Clock struct {
	window  Window
	session *Session
}

func NewClock(w Window, s *Session) *Clock {
	return &Clock{window: w, session: s}
}

func (c *Clock) Window() Window     { return c.window }
func (c *Clock) Session() *Session { return c.session }

// AdvanceDay rolls the session forward when now's calendar day differs from
// the stored trading day. It clears the halt flag, realized P&L and peak
// equity, and reports whether a roll happened.
func (c *Clock) AdvanceDay(now time.Time) bool {
	day := c.window.Day(now)
	if !c.session.TradingDay.IsZero() && c.session.TradingDay.Equal(day) {
		return false
	}
	start, end := c.window.Bounds(now)
	c.session.roll(day, start, end)
	return true
}

// InWindow reports whether now falls inside [start, end) of the current
// trading day, ignoring the halt flag.
func (c *Clock) InWindow(now time.Time) bool {
	if c.session.TradingDay.IsZero() {
		return false
	}
	return !now.Before(c.session.WindowStart) && now.Before(c.session.WindowEnd)
}

// IsTradingAllowed is InWindow and not halted.
func (c *Clock) IsTradingAllowed(now time.Time) bool {
	return c.InWindow(now) && !c.session.Halted
}
