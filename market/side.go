// Package market holds the instrument-level value types shared by brokers,
// strategies and the ledger.
package market

import (
	"fmt"
	"strings"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Sign returns +1 for Buy and -1 for Sell.
func (s Side) Sign() int64 {
	if s == Sell {
		return -1
	}
	return 1
}

// SideFor returns the side that moves a position by delta units, and the
// unsigned quantity to trade.
func SideFor(delta int64) (Side, int64) {
	if delta < 0 {
		return Sell, -delta
	}
	return Buy, delta
}

// Desired is the position a strategy wants to hold.
type Desired int

const (
	Flat Desired = iota
	Long
	Short
)

func (d Desired) String() string {
	switch d {
	case Flat:
		return "FLAT"
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Desired(%d)", int(d))
	}
}

// Target converts a desired position into a signed quantity of size units.
func (d Desired) Target(size int64) int64 {
	switch d {
	case Long:
		return size
	case Short:
		return -size
	default:
		return 0
	}
}

// ParseDesired accepts "long", "short" and "flat" in any case.
func ParseDesired(s string) (Desired, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	case "flat", "":
		return Flat, nil
	default:
		return Flat, fmt.Errorf("unknown position %q (want long, short or flat)", s)
	}
}
