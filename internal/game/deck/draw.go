package deck

import "errors"

// MaxRedraws bounds consecutive sentinel draws. A master list holding any
// non-sentinel card produces one long before this.
const MaxRedraws = 64

// ErrChaosLoop is returned when the master list yields only sentinels.
var ErrChaosLoop = errors.New("deck: master list produced only chaos cards")

// ErrEmptyMaster is returned when there is nothing to draw or reshuffle.
var ErrEmptyMaster = errors.New("deck: master list is empty")

// Draw is the outcome of DrawTop.
type Draw[T comparable] struct {
	Card       T
	Deck       []T
	Played     []T
	Reshuffles int
}

// DrawTop removes the first card of deck. Drawing the sentinel discards it,
// clears the history and replaces the deck with a fresh shuffle of master,
// then draws again. An exhausted deck is refilled from master the same way.
// Only the final card is appended to the history. Pass the zero value of T as
// sentinel for decks without one.
func DrawTop[T comparable](deck, master, played []T, sentinel T, s Shuffler) (Draw[T], error) {
	var zero T
	out := Draw[T]{
		Deck:   append([]T(nil), deck...),
		Played: append([]T(nil), played...),
	}

	for attempt := 0; attempt <= MaxRedraws; attempt++ {
		if len(out.Deck) == 0 {
			if len(master) == 0 {
				return out, ErrEmptyMaster
			}
			out.Deck = Shuffled(master, s)
			out.Played = out.Played[:0]
			out.Reshuffles++
		}

		card := out.Deck[0]
		out.Deck = out.Deck[1:]

		if sentinel != zero && card == sentinel {
			out.Played = out.Played[:0]
			out.Deck = Shuffled(master, s)
			out.Reshuffles++
			continue
		}

		out.Card = card
		out.Played = append(out.Played, card)
		return out, nil
	}

	return out, ErrChaosLoop
}
