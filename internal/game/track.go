package game

import (
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// availableSlot returns the index of the one open slot, or -1.
func availableSlot(track *SharedTrack) int {
	for i, slot := range track.Slots {
		if slot.Available {
			return i
		}
	}
	return -1
}

// advanceTrack buys the open slot and opens the next one. It returns the
// bought index, or -1 when the track is exhausted.
func advanceTrack(track *SharedTrack) int {
	idx := availableSlot(track)
	if idx < 0 {
		return -1
	}
	track.Slots[idx].Bought = true
	track.Slots[idx].Available = false
	if idx+1 < len(track.Slots) {
		track.Slots[idx+1].Available = true
	}
	return idx
}

func buyTrack(t *transition, a Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	p := t.actor
	if p.Busy() {
		return invalidTransition("%s must finish the current interaction before buying", p.User.Name)
	}
	track := t.state.track(a.Track)
	if track == nil {
		return unknownReference("unknown track %q", a.Track)
	}
	idx := availableSlot(track)
	if idx < 0 {
		return invalidTransition("%s has no slots left this round", track.Name)
	}
	cost := track.Slots[idx].Cost
	if err := p.Stash.Take(ledger.Geld, cost); err != nil {
		return err
	}
	advanceTrack(track)

	switch track.Name {
	case TrackTradingPost:
		p.UsingTradingPost = true
		p.UsingTradingPostStep1 = true
	case TrackTribute:
		p.Stash.Give(ledger.Prestige, 1)
	case TrackEndGame:
		// The final slot ends the game at the next round boundary.
	case TrackLeadViking:
		for _, other := range t.state.Players {
			other.LeadViking = false
		}
		p.LeadViking = true
	}

	t.emit(rules.EventTrackSlotBought, track.Name, cost, "")
	return nil
}
