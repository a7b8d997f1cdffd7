package game

import (
	"fmt"

	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// drawOffering draws from the offering deck for the buyer and resolves it.
func (t *transition) drawOffering(p *PlayerState) error {
	s := t.state
	d, err := deck.DrawTop(s.OfferingDeck, t.game.Offerings, s.PlayedOfferings, "", t.shuffler)
	if err != nil {
		return fmt.Errorf("draw offering: %w", err)
	}
	s.OfferingDeck = d.Deck
	s.PlayedOfferings = d.Played
	if d.Reshuffles > 0 {
		t.emit(rules.EventDeckReshuffled, "", d.Reshuffles, "offerings")
	}
	t.emit(rules.EventOfferingDrawn, "", 0, string(d.Card))

	switch d.Card {
	case OfferingSmite:
		p.Smiting = true
		p.DecidingWhoToSmite = true
	case OfferingBounty:
		p.CollectingBounty = true
	case OfferingScourge:
		t.scourge(p)
	case OfferingHonor:
		t.honor(p)
	case OfferingFortune:
		amount := 2
		for _, other := range s.Players {
			if other != p {
				amount += other.Structures[Tavern] + other.Structures[MeadHall]
			}
		}
		p.Stash.Give(ledger.Geld, amount)
	case OfferingValkyrie:
		p.Valkyring = true
		p.DecidingWhoToValkyrie = true
		p.Stash.Give(ledger.Gods, 1)
	default:
		return fmt.Errorf("unknown offering %q", d.Card)
	}
	return nil
}

// scourge halves every other player's geld and leaves them owing half their
// tradeable goods.
func (t *transition) scourge(p *PlayerState) {
	for _, other := range t.state.Players {
		if other == p {
			continue
		}
		lost := other.Stash[ledger.Geld] / 2
		other.Stash.Give(ledger.Geld, -lost)
		other.ResourcesLeftToScourge = other.Stash.TradeableTotal() / 2
		t.emit(rules.EventScourged, other.User.ID, lost, "")
	}
}

func (t *transition) honor(p *PlayerState) {
	if tribute := t.state.track(TrackTribute); tribute != nil {
		if idx := advanceTrack(tribute); idx >= 0 {
			t.emit(rules.EventTrackSlotBought, TrackTribute, 0, "honor")
		}
	}
	p.Stash.Give(ledger.Prestige, 1)
}

func chooseWhoToSmite(t *transition, a Action) error {
	p := t.actor
	if !p.Smiting || !p.DecidingWhoToSmite {
		return invalidTransition("%s is not choosing whom to smite", p.User.Name)
	}
	if a.TargetUserID == "" {
		p.Smiting = false
		p.DecidingWhoToSmite = false
		p.Stash.Give(ledger.Gods, 1)
		t.emit(rules.EventSmiteResolved, "", 0, "cancelled")
		return nil
	}
	target, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}
	p.SmiteTargetUserID = target.User.ID
	p.DecidingWhoToSmite = false
	return nil
}

func chooseWhatToSmite(t *transition, a Action) error {
	p := t.actor
	if !p.Smiting || p.DecidingWhoToSmite || p.SmiteTargetUserID == "" {
		return invalidTransition("%s is not choosing what to smite", p.User.Name)
	}
	target := t.state.Player(p.SmiteTargetUserID)
	if target == nil {
		return unknownReference("smite target %q is not in this game", p.SmiteTargetUserID)
	}
	burned, err := destroyStructure(target, a.Structure)
	if err != nil {
		return err
	}

	if burned {
		t.recordWeregeld(p, target)
		t.emit(rules.EventStructureBurned, target.User.ID, 1, string(a.Structure))
	}
	p.Smiting = false
	p.SmiteTargetUserID = ""
	t.emit(rules.EventSmiteResolved, target.User.ID, 0, string(a.Structure))
	return nil
}

// collectBounty pays two plus every other player's longboats.
func collectBounty(t *transition, a Action) error {
	p := t.actor
	if !p.CollectingBounty {
		return invalidTransition("%s has no bounty to collect", p.User.Name)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	amount := 2
	for _, other := range t.state.Players {
		if other != p {
			amount += other.Structures[Longboat]
		}
	}
	p.Stash.Give(a.Resource, amount)
	p.CollectingBounty = false
	t.emit(rules.EventBountyCollected, "", amount, string(a.Resource))
	return nil
}

func chooseWhoToValkyrie(t *transition, a Action) error {
	p := t.actor
	if !p.Valkyring || !p.DecidingWhoToValkyrie {
		return invalidTransition("%s is not choosing whom the valkyries visit", p.User.Name)
	}
	if a.TargetUserID == "" {
		p.Valkyring = false
		p.DecidingWhoToValkyrie = false
		t.emit(rules.EventValkyrieResolved, "", 0, "cancelled")
		return nil
	}
	target, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}
	p.ValkyrieTargetUserID = target.User.ID
	p.DecidingWhoToValkyrie = false
	return nil
}

// chooseWhatToValkyrie takes one clansman from the target. A fallen viking
// becomes an einherjar for its owner.
func chooseWhatToValkyrie(t *transition, a Action) error {
	p := t.actor
	if !p.Valkyring || p.DecidingWhoToValkyrie || p.ValkyrieTargetUserID == "" {
		return invalidTransition("%s is not choosing a clansman for the valkyries", p.User.Name)
	}
	target := t.state.Player(p.ValkyrieTargetUserID)
	if target == nil {
		return unknownReference("valkyrie target %q is not in this game", p.ValkyrieTargetUserID)
	}

	if a.Clansman == "" {
		if target.Clansmen[Skald] > 0 || target.Clansmen[Viking] > 0 {
			return invalidArgument("a clansman must be chosen")
		}
	} else {
		if !a.Clansman.Valid() {
			return invalidArgument("unknown clansman %q", a.Clansman)
		}
		if target.Clansmen[a.Clansman] < 1 {
			return insufficientResource("%s has no %s", target.User.Name, a.Clansman)
		}
		target.Clansmen[a.Clansman]--
		if a.Clansman == Viking {
			target.Stash.Give(ledger.Einherjar, 1)
		}
	}

	p.Valkyring = false
	p.ValkyrieTargetUserID = ""
	t.emit(rules.EventValkyrieResolved, target.User.ID, 0, string(a.Clansman))
	return nil
}

// scourgeResource is paid down by the scourged player, whoever holds the turn.
func scourgeResource(t *transition, a Action) error {
	p := t.actor
	if p.ResourcesLeftToScourge <= 0 {
		return invalidTransition("%s owes nothing to the scourge", p.User.Name)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	if err := p.Stash.Take(a.Resource, 1); err != nil {
		return err
	}
	p.ResourcesLeftToScourge--
	t.emit(rules.EventScourged, p.User.ID, 1, string(a.Resource))
	return nil
}

func resetOfferings(t *transition, _ Action) error {
	for _, p := range t.state.Players {
		p.clearOfferingFlags()
	}
	t.emit(rules.EventOfferingsReset, "", 0, "")
	return nil
}
