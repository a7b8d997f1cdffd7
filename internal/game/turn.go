package game

import (
	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

func endTurn(t *transition, _ Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	s := t.state
	p := t.actor
	if p.Busy() {
		return invalidTransition("%s must finish the current interaction before ending the turn", p.User.Name)
	}

	t.emit(rules.EventTurnEnded, "", s.Round, "")

	if p.LastViking {
		t.roundBoundary(p)
	} else {
		s.CurrentPlayerIndex = rules.NextIndex(s.CurrentPlayerIndex, len(s.Players))
	}

	for _, player := range s.Players {
		player.StructureUses[Tavern] = player.Structures[Tavern]
		player.StructureUses[MeadHall] = player.Structures[MeadHall]
	}

	return t.drawOmen(true)
}

// roundBoundary hands the turn to the lead viking and settles the round.
func (t *transition) roundBoundary(last *PlayerState) {
	s := t.state
	n := len(s.Players)

	last.LastViking = false
	lead := s.leadIndex()
	s.CurrentPlayerIndex = lead
	s.Players[rules.PrevIndex(lead, n)].LastViking = true

	for _, p := range s.Players {
		for _, structure := range AllStructures {
			p.Structures[structure] += p.Purchased[structure]
			p.Purchased[structure] = 0
		}
	}

	for i, track := range s.SharedTracks {
		if !track.Reset {
			continue
		}
		if tmpl, ok := t.game.trackTemplate(track.Name); ok {
			s.SharedTracks[i] = tmpl.Clone()
		}
	}

	if endGame := s.track(TrackEndGame); endGame != nil && len(endGame.Slots) > 0 && endGame.Slots[len(endGame.Slots)-1].Bought {
		t.game.Status = StatusComplete
		t.emit(rules.EventGameCompleted, "", s.Round, "")
	}

	s.OfferingDeck = deck.Shuffled(t.game.Offerings, t.shuffler)
	s.PlayedOfferings = []OfferingKind{}
	t.emit(rules.EventDeckReshuffled, "", 0, "offerings")

	t.emit(rules.EventRoundEnded, s.Players[lead].User.ID, s.Round, "")
	s.Round++
}
