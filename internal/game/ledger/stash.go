// Package ledger holds player stashes and the primitives that move resources
// between them.
package ledger

import (
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
)

// Resource is a kind of value a player can hold in their stash.
type Resource string

const (
	Blue   Resource = "blue"
	Green  Resource = "green"
	Red    Resource = "red"
	Purple Resource = "purple"

	Geld      Resource = "geld"
	Prestige  Resource = "prestige"
	Gods      Resource = "gods"
	Einherjar Resource = "einherjar"
	Weregeld  Resource = "weregeld"
)

// Tradeable lists the four goods that are picked in setup, stolen in raids
// and paid into the marketplace.
var Tradeable = []Resource{Blue, Green, Red, Purple}

// All lists every stash entry in display order.
var All = []Resource{Blue, Green, Red, Purple, Geld, Prestige, Gods, Einherjar, Weregeld}

// IsTradeable reports whether r is one of the four tradeable goods.
func (r Resource) IsTradeable() bool {
	switch r {
	case Blue, Green, Red, Purple:
		return true
	}
	return false
}

// Valid reports whether r names a stash entry.
func (r Resource) Valid() bool {
	for _, known := range All {
		if r == known {
			return true
		}
	}
	return false
}

// Stash is a player's resource ledger.
type Stash map[Resource]int

// NewStash returns a stash with every entry present and zero.
func NewStash() Stash {
	s := make(Stash, len(All))
	for _, r := range All {
		s[r] = 0
	}
	return s
}

// Get returns the balance of r.
func (s Stash) Get(r Resource) int {
	return s[r]
}

// Give adds amount to r. Negative amounts deduct without a floor check;
// callers that must not overdraw use Take.
func (s Stash) Give(r Resource, amount int) {
	s[r] += amount
}

// Take deducts amount from r, failing without change if the balance is short.
func (s Stash) Take(r Resource, amount int) error {
	if amount < 0 {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "cannot take negative amount %d", amount)
	}
	if s[r] < amount {
		return insufficient(r, s[r], amount)
	}
	s[r] -= amount
	return nil
}

// TradeableTotal sums the four tradeable goods.
func (s Stash) TradeableTotal() int {
	total := 0
	for _, r := range Tradeable {
		total += s[r]
	}
	return total
}

// Clone returns an independent copy.
func (s Stash) Clone() Stash {
	if s == nil {
		return nil
	}
	out := make(Stash, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Transfer moves amount of r from one stash to another. The source balance is
// checked first so a failed transfer leaves both stashes untouched.
func Transfer(from, to Stash, r Resource, amount int) error {
	if err := from.Take(r, amount); err != nil {
		return err
	}
	to.Give(r, amount)
	return nil
}

func insufficient(r Resource, have, need int) error {
	return apperrors.Newf(apperrors.CodeInsufficientResource, "not enough %s: have %d, need %d", r, have, need).
		WithMetadata("resource", string(r))
}
