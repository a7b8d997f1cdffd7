package ledger

// Cost is a price over stash resources.
type Cost map[Resource]int

// NewCost builds a cost over the four tradeable goods.
func NewCost(blue, green, red, purple int) Cost {
	return Cost{Blue: blue, Green: green, Red: red, Purple: purple}
}

// Total returns the sum of all components.
func (c Cost) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (c Cost) Clone() Cost {
	if c == nil {
		return nil
	}
	out := make(Cost, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CanAfford reports whether every component of c is covered.
func (s Stash) CanAfford(c Cost) bool {
	for r, amount := range c {
		if s[r] < amount {
			return false
		}
	}
	return true
}

// Pay deducts the whole cost or nothing.
func (s Stash) Pay(c Cost) error {
	for _, r := range All {
		if amount := c[r]; s[r] < amount {
			return insufficient(r, s[r], amount)
		}
	}
	for r, amount := range c {
		s[r] -= amount
	}
	return nil
}

// Refund adds the cost back.
func (s Stash) Refund(c Cost) {
	for r, amount := range c {
		s[r] += amount
	}
}
