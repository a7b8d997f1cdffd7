package game

import (
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

const convertToGeldDiscard = 4

// convertToRare turns two of the player's common resource into one rare.
func convertToRare(t *transition, _ Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if err := p.Stash.Take(p.ResourcePicks.Common, 2); err != nil {
		return err
	}
	p.Stash.Give(p.ResourcePicks.Rare, 1)
	t.emit(rules.EventResourceConverted, "", 1, string(p.ResourcePicks.Rare))
	return nil
}

// convertToGeld grants one geld up front; the player then discards four
// tradeable resources with convert.
func convertToGeld(t *transition, _ Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.ResourcesLeftToConvert > 0 {
		return invalidTransition("%s is still converting", p.User.Name)
	}
	if p.Stash.TradeableTotal() < convertToGeldDiscard {
		return insufficientResource("%s needs %d resources to convert to geld", p.User.Name, convertToGeldDiscard)
	}
	p.Stash.Give(ledger.Geld, 1)
	p.ResourcesLeftToConvert = convertToGeldDiscard
	t.emit(rules.EventResourceConverted, "", 1, string(ledger.Geld))
	return nil
}

func convert(t *transition, a Action) error {
	p := t.actor
	if p.ResourcesLeftToConvert <= 0 {
		return invalidTransition("%s has nothing left to convert", p.User.Name)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	if err := p.Stash.Take(a.Resource, 1); err != nil {
		return err
	}
	p.ResourcesLeftToConvert--
	return nil
}

func tradeAway(t *transition, a Action) error {
	p := t.actor
	if !p.UsingTradingPost || !p.UsingTradingPostStep1 {
		return invalidTransition("%s is not trading away at the trading post", p.User.Name)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	if err := p.Stash.Take(a.Resource, 1); err != nil {
		return err
	}
	p.UsingTradingPostStep1 = false
	t.emit(rules.EventResourceTraded, "", -1, string(a.Resource))
	return nil
}

func tradeFor(t *transition, a Action) error {
	p := t.actor
	if !p.UsingTradingPost || p.UsingTradingPostStep1 {
		return invalidTransition("%s is not trading for a resource at the trading post", p.User.Name)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	p.Stash.Give(a.Resource, 1)
	p.UsingTradingPost = false
	t.emit(rules.EventResourceTraded, "", 1, string(a.Resource))
	return nil
}

func activateTavern(t *transition, _ Action) error {
	return t.activateStructure(Tavern, func(p *PlayerState) ledger.Resource { return p.ResourcePicks.Rare })
}

func activateMeadHall(t *transition, _ Action) error {
	return t.activateStructure(MeadHall, func(p *PlayerState) ledger.Resource { return p.ResourcePicks.Common })
}

// activateStructure spends one use of s and one of the player's picked
// resource for a geld. Any seated player may do this off turn.
func (t *transition) activateStructure(s Structure, input func(*PlayerState) ledger.Resource) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.StructureUses[s] < 1 {
		return insufficientResource("%s has no %s uses left this round", p.User.Name, s)
	}
	if err := p.Stash.Take(input(p), 1); err != nil {
		return err
	}
	p.Stash.Give(ledger.Geld, 1)
	p.StructureUses[s]--
	t.emit(rules.EventStructureUsed, string(s), 1, "")
	return nil
}

func sacrificeSkald(t *transition, _ Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.Clansmen[Skald] < 1 {
		return insufficientResource("%s has no skald", p.User.Name)
	}
	if err := p.Stash.Take(p.ResourcePicks.Rare, 1); err != nil {
		return err
	}
	p.Clansmen[Skald]--
	p.Stash.Give(ledger.Gods, 1)
	t.emit(rules.EventSkaldUsed, "", 1, "sacrifice")
	return nil
}

func performSkald(t *transition, _ Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.GivingSkald {
		return invalidTransition("%s is already performing", p.User.Name)
	}
	if p.Clansmen[Skald] < 1 {
		return insufficientResource("%s has no skald", p.User.Name)
	}
	p.Clansmen[Skald]--
	p.GivingSkald = true
	return nil
}

// giveSkald sends the performing skald to another player. The performer earns
// the amount by which the others' taverns and meadhalls exceed their own, and
// at least one geld.
func giveSkald(t *transition, a Action) error {
	p := t.actor
	if !p.GivingSkald {
		return invalidTransition("%s has no skald performing", p.User.Name)
	}
	recipient, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}

	earned := 0
	for _, other := range t.state.Players {
		halls := other.Structures[Tavern] + other.Structures[MeadHall]
		if other == p {
			earned -= halls
		} else {
			earned += halls
		}
	}
	if earned <= 1 {
		earned = 1
	}

	recipient.Clansmen[Skald]++
	p.Stash.Give(ledger.Geld, earned)
	p.GivingSkald = false
	t.emit(rules.EventSkaldUsed, recipient.User.ID, earned, "perform")
	return nil
}

// giveResource hands one unit to another player. One side of the exchange
// must hold the turn.
func giveResource(t *transition, a Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	giver := t.actor
	recipient, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}
	current := t.state.CurrentPlayer()
	if giver != current && recipient != current {
		return invalidTransition("resources can only be given to or by the player whose turn it is")
	}
	if !a.Resource.IsTradeable() && a.Resource != ledger.Geld {
		return invalidArgument("%q cannot be given", a.Resource)
	}
	if err := ledger.Transfer(giver.Stash, recipient.Stash, a.Resource, 1); err != nil {
		return err
	}
	t.emit(rules.EventResourceGiven, recipient.User.ID, 1, string(a.Resource))
	return nil
}
