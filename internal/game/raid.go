package game

import (
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

func chooseWhoToRaid(t *transition, a Action) error {
	p := t.actor
	if !p.Raiding || !p.DecidingWhoToRaid {
		return invalidTransition("%s is not choosing a raid target", p.User.Name)
	}
	if a.TargetUserID == "" {
		p.closeRaid()
		t.emit(rules.EventRaidEnded, "", 0, "cancelled")
		return nil
	}
	target, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}

	p.RaidTargetUserID = target.User.ID
	p.DecidingWhoToRaid = false
	p.DecidingHowToRaid = true
	t.emit(rules.EventRaidTargeted, target.User.ID, 0, "")
	return nil
}

func chooseHowToRaid(t *transition, a Action) error {
	p := t.actor
	if !p.Raiding || !p.DecidingHowToRaid {
		return invalidTransition("%s is not choosing how to raid", p.User.Name)
	}
	target, err := t.raidTarget(p)
	if err != nil {
		return err
	}
	if !a.RaidMode.takes() && !a.RaidMode.burns() {
		return invalidArgument("unknown raid mode %q", a.RaidMode)
	}

	p.DecidingHowToRaid = false
	if a.RaidMode.takes() {
		p.RaidTakeNumLeft = p.Clansmen[Viking]
	}
	t.emit(rules.EventRaidTargeted, target.User.ID, p.RaidTakeNumLeft, string(a.RaidMode))

	if !a.RaidMode.burns() {
		t.closeRaidIfSpent(p, target)
		return nil
	}
	if target.Clansmen[Viking] > 0 {
		p.WaitingForDefender = true
		target.DefendingBurn = true
	} else {
		p.ChoosingWhatToBurn = true
	}
	return nil
}

// defendAttack is answered by the raided player, not the turn holder.
func defendAttack(t *transition, a Action) error {
	defender := t.actor
	if !defender.DefendingBurn {
		return invalidTransition("%s is not being asked to defend", defender.User.Name)
	}
	attacker := t.attackerOf(defender)
	if attacker == nil {
		return invalidTransition("no raid is waiting on %s", defender.User.Name)
	}
	if a.Defend && defender.Clansmen[Viking] < 1 {
		return insufficientResource("%s has no viking left to defend with", defender.User.Name)
	}

	defender.DefendingBurn = false
	attacker.WaitingForDefender = false

	if !a.Defend {
		attacker.ChoosingWhatToBurn = true
		t.emit(rules.EventRaidDefended, attacker.User.ID, 0, "declined")
		return nil
	}

	defender.Clansmen[Viking]--
	defender.Stash.Give(ledger.Einherjar, 1)
	attacker.ChoosingWhatToBurn = false
	t.emit(rules.EventRaidDefended, attacker.User.ID, 1, "defended")
	t.closeRaidIfSpent(attacker, defender)
	return nil
}

// burnStructure destroys one of the target's structures. An empty structure
// is accepted only when the target has nothing left to burn.
func burnStructure(t *transition, a Action) error {
	p := t.actor
	if !p.Raiding || !p.ChoosingWhatToBurn {
		return invalidTransition("%s is not choosing what to burn", p.User.Name)
	}
	target, err := t.raidTarget(p)
	if err != nil {
		return err
	}
	burned, err := destroyStructure(target, a.Structure)
	if err != nil {
		return err
	}

	p.ChoosingWhatToBurn = false
	if burned {
		t.recordWeregeld(p, target)
		t.emit(rules.EventStructureBurned, target.User.ID, 1, string(a.Structure))
	}
	t.closeRaidIfSpent(p, target)
	return nil
}

func stealResource(t *transition, a Action) error {
	p := t.actor
	if !p.Raiding || p.RaidTakeNumLeft <= 0 || p.DecidingWhoToRaid || p.DecidingHowToRaid ||
		p.WaitingForDefender || p.ChoosingWhatToBurn {
		return invalidTransition("%s cannot steal right now", p.User.Name)
	}
	target, err := t.raidTarget(p)
	if err != nil {
		return err
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	if err := ledger.Transfer(target.Stash, p.Stash, a.Resource, 1); err != nil {
		return err
	}

	p.RaidTakeNumLeft--
	t.emit(rules.EventResourceStolen, target.User.ID, 1, string(a.Resource))
	t.closeRaidIfSpent(p, target)
	return nil
}

func resetRaids(t *transition, _ Action) error {
	for _, p := range t.state.Players {
		p.clearRaidFlags()
	}
	t.emit(rules.EventRaidsReset, "", 0, "")
	return nil
}

// payWeregeld settles one burn debt. The price is the payer's prestige, and
// never less than one geld.
func payWeregeld(t *transition, a Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	payer := t.actor
	creditor, err := t.opponent(a.TargetUserID)
	if err != nil {
		return err
	}
	idx := -1
	for i, id := range payer.WeregeldOwed {
		if id == creditor.User.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return unknownReference("%s owes no weregeld to %s", payer.User.Name, creditor.User.Name)
	}
	if payer.Stash[ledger.Weregeld] < 1 {
		return insufficientResource("%s has no weregeld outstanding", payer.User.Name)
	}

	cost := max(1, payer.Stash[ledger.Prestige])
	if err := ledger.Transfer(payer.Stash, creditor.Stash, ledger.Geld, cost); err != nil {
		return err
	}
	payer.Stash.Give(ledger.Weregeld, -1)
	payer.WeregeldOwed = append(payer.WeregeldOwed[:idx], payer.WeregeldOwed[idx+1:]...)
	t.emit(rules.EventWeregeldPaid, creditor.User.ID, cost, "")
	return nil
}

func (t *transition) raidTarget(p *PlayerState) (*PlayerState, error) {
	target := t.state.Player(p.RaidTargetUserID)
	if target == nil {
		return nil, unknownReference("raid target %q is not in this game", p.RaidTargetUserID)
	}
	return target, nil
}

func (t *transition) attackerOf(defender *PlayerState) *PlayerState {
	for _, p := range t.state.Players {
		if p.Raiding && p.WaitingForDefender && p.RaidTargetUserID == defender.User.ID {
			return p
		}
	}
	return nil
}

// closeRaidIfSpent ends the raid once nothing more can be taken.
func (t *transition) closeRaidIfSpent(attacker, target *PlayerState) {
	if attacker.RaidTakeNumLeft > 0 && target.Stash.TradeableTotal() > 0 {
		return
	}
	attacker.closeRaid()
	t.emit(rules.EventRaidEnded, target.User.ID, 0, "")
}

// recordWeregeld books a burn debt from attacker to victim.
func (t *transition) recordWeregeld(attacker, victim *PlayerState) {
	attacker.Stash.Give(ledger.Weregeld, 1)
	attacker.WeregeldOwed = append(attacker.WeregeldOwed, victim.User.ID)
}

// destroyStructure removes one structure from p. It reports false when p owns
// no structures at all and none was named.
func destroyStructure(p *PlayerState, s Structure) (bool, error) {
	if s == "" {
		for _, kind := range AllStructures {
			if p.Structures[kind] > 0 {
				return false, invalidArgument("a structure must be chosen")
			}
		}
		return false, nil
	}
	if !s.Valid() {
		return false, invalidArgument("unknown structure %q", s)
	}
	if p.Structures[s] < 1 {
		return false, insufficientResource("%s has no %s", p.User.Name, s)
	}
	p.Structures[s]--
	if p.StructureUses[s] > p.Structures[s] {
		p.StructureUses[s] = p.Structures[s]
	}
	return true, nil
}
