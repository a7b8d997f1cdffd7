package game

import (
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// Start seats the joined players in a shuffled order and deals both decks.
// The first seat is the lead viking and the last seat the last viking.
func Start(g *Game, shuffler deck.Shuffler, now time.Time) (*Game, []rules.Event, error) {
	if g.Status != StatusOpen {
		return nil, nil, invalidTransition("game %s is already %s", g.ID, g.Status)
	}
	if len(g.Players) < 2 {
		return nil, nil, invalidTransition("game %s needs at least two players to start", g.ID)
	}

	next := g.Clone()
	order := deck.Shuffled(next.Players, shuffler)

	players := make([]*PlayerState, len(order))
	for i, u := range order {
		players[i] = newPlayerState(u)
	}
	players[0].LeadViking = true
	players[len(players)-1].LastViking = true

	tracks := make([]SharedTrack, len(next.SharedTracks))
	for i, tmpl := range next.SharedTracks {
		tracks[i] = tmpl.Clone()
	}

	next.CurrentState = &CurrentState{
		Step:               rules.StepSetup,
		Round:              1,
		Players:            players,
		CurrentPlayerIndex: 0,
		AvailableCommon:    append([]ledger.Resource{}, ledger.Tradeable...),
		AvailableRare:      append([]ledger.Resource{}, ledger.Tradeable...),
		SharedTracks:       tracks,
		OmenDeck:           deck.Shuffled(next.Omens, shuffler),
		PlayedOmens:        []OmenKind{},
		OfferingDeck:       deck.Shuffled(next.Offerings, shuffler),
		PlayedOfferings:    []OfferingKind{},
	}
	next.Status = StatusStarted

	evt := rules.NewEventWithAmount(rules.EventGameStarted, next.ID, players[0].User.ID, "", len(players))
	evt.Timestamp = now
	return next, []rules.Event{evt}, nil
}

// pickCommon drafts a common resource. Picks run forward through the seats;
// the last viking follows their common pick with their rare pick.
func pickCommon(t *transition, a Action) error {
	s := t.state
	p := t.actor
	if s.Step != rules.StepSetup {
		return invalidTransition("resources are only picked during setup")
	}
	if p.ResourcePicks.Common != "" {
		return invalidTransition("%s already picked %s as common resource", p.User.Name, p.ResourcePicks.Common)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	idx := indexOfResource(s.AvailableCommon, a.Resource)
	if idx < 0 {
		return invalidTransition("%s is no longer available as a common resource", a.Resource)
	}

	p.ResourcePicks.Common = a.Resource
	s.AvailableCommon = append(s.AvailableCommon[:idx], s.AvailableCommon[idx+1:]...)
	t.emit(rules.EventResourcePicked, "", 0, "common:"+string(a.Resource))

	if !p.LastViking {
		s.CurrentPlayerIndex = rules.NextIndex(s.CurrentPlayerIndex, len(s.Players))
	}
	return nil
}

// pickRare drafts a rare resource. Picks run backwards and the lead viking's
// pick starts play.
func pickRare(t *transition, a Action) error {
	s := t.state
	p := t.actor
	if s.Step != rules.StepSetup {
		return invalidTransition("resources are only picked during setup")
	}
	for _, other := range s.Players {
		if other.ResourcePicks.Common == "" {
			return invalidTransition("every player must pick a common resource before rare picks begin")
		}
	}
	if p.ResourcePicks.Rare != "" {
		return invalidTransition("%s already picked %s as rare resource", p.User.Name, p.ResourcePicks.Rare)
	}
	if err := requireTradeable(a.Resource); err != nil {
		return err
	}
	idx := indexOfResource(s.AvailableRare, a.Resource)
	if idx < 0 {
		return invalidTransition("%s is no longer available as a rare resource", a.Resource)
	}

	p.ResourcePicks.Rare = a.Resource
	s.AvailableRare = append(s.AvailableRare[:idx], s.AvailableRare[idx+1:]...)
	t.emit(rules.EventResourcePicked, "", 0, "rare:"+string(a.Resource))

	if !p.LeadViking {
		s.CurrentPlayerIndex = rules.PrevIndex(s.CurrentPlayerIndex, len(s.Players))
		return nil
	}
	return t.beginPlay()
}

func (t *transition) beginPlay() error {
	t.state.Step = rules.StepPlay
	t.state.CurrentPlayerIndex = 0
	t.emit(rules.EventPlayStarted, "", t.state.Round, "")
	return t.drawOmen(false)
}
