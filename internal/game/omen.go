package game

import (
	"fmt"

	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// drawOmen draws and resolves the next omen. Longboats add to resource omens
// only once play is under way.
func (t *transition) drawOmen(longboatBonus bool) error {
	s := t.state
	d, err := deck.DrawTop(s.OmenDeck, t.game.Omens, s.PlayedOmens, OmenChaos, t.shuffler)
	if err != nil {
		return fmt.Errorf("draw omen: %w", err)
	}
	s.OmenDeck = d.Deck
	s.PlayedOmens = d.Played
	if d.Reshuffles > 0 {
		t.emit(rules.EventDeckReshuffled, "", d.Reshuffles, "omens")
	}
	t.emit(rules.EventOmenDrawn, "", 0, string(d.Card))

	switch d.Card {
	case OmenCommon, OmenRare:
		for _, p := range s.Players {
			resource := p.ResourcePicks.Common
			if d.Card == OmenRare {
				resource = p.ResourcePicks.Rare
			}
			if resource == "" {
				continue
			}
			amount := 1
			if longboatBonus {
				amount += p.Structures[Longboat]
			}
			p.Stash.Give(resource, amount)
		}
	case OmenWar:
		current := s.CurrentPlayer()
		current.Raiding = true
		current.DecidingWhoToRaid = true
		t.emit(rules.EventRaidStarted, current.User.ID, 0, "war")
	default:
		return fmt.Errorf("unknown omen %q", d.Card)
	}
	return nil
}
