package game

import (
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// buyMarketplace buys a good. Structures and clansmen go through the command
// log so they can be undone; actions take effect at once.
func buyMarketplace(t *transition, a Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.Busy() {
		return invalidTransition("%s must finish the current interaction before buying", p.User.Name)
	}
	good, ok := t.game.Good(a.Good)
	if !ok {
		return unknownReference("unknown good %q", a.Good)
	}

	switch good.Kind {
	case GoodStructure, GoodClansman:
		if err := t.executeCommand(newBuyGoodCommand(p, good, t.state.Round, t.now)); err != nil {
			return err
		}
	case GoodAction:
		if err := payForGood(p, good); err != nil {
			return err
		}
		switch good.Name {
		case GoodAttack:
			p.Raiding = true
			p.DecidingWhoToRaid = true
			t.emit(rules.EventRaidStarted, p.User.ID, 0, GoodAttack)
		case GoodOffering:
			if err := t.drawOffering(p); err != nil {
				return err
			}
		default:
			return invalidArgument("action good %q has no effect", good.Name)
		}
	default:
		return invalidArgument("good %q has unknown kind %q", good.Name, good.Kind)
	}

	t.emit(rules.EventGoodBought, good.Name, good.Cost.Total(), string(good.Kind))
	return nil
}

// payForGood deducts the cost and consumes the prerequisites, or changes
// nothing.
func payForGood(p *PlayerState, good Good) error {
	need := make(map[Structure]int, len(good.Prereqs))
	for _, prereq := range good.Prereqs {
		need[prereq]++
	}
	for prereq, n := range need {
		if p.Structures[prereq] < n {
			return insufficientResource("%s needs %d %s to buy %s", p.User.Name, n, prereq, good.Name)
		}
	}
	if err := p.Stash.Pay(good.Cost); err != nil {
		return err
	}
	for _, prereq := range good.Prereqs {
		p.Structures[prereq]--
		if p.StructureUses[prereq] > p.Structures[prereq] {
			p.StructureUses[prereq] = p.Structures[prereq]
		}
	}
	return nil
}

func refundGood(p *PlayerState, good Good) {
	p.Stash.Refund(good.Cost)
	for _, prereq := range good.Prereqs {
		p.Structures[prereq]++
	}
}

