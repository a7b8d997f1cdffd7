package game

import (
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// ActionType names a player action.
type ActionType string

const (
	ActionPickCommon     ActionType = "pick-common"
	ActionPickRare       ActionType = "pick-rare"
	ActionBuyMarketplace ActionType = "buy-marketplace"
	ActionBuyTrack       ActionType = "buy-track"
	ActionEndTurn        ActionType = "end-turn"

	ActionChooseWhoToRaid ActionType = "choose-who-to-raid"
	ActionChooseHowToRaid ActionType = "choose-how-to-raid"
	ActionBurnStructure   ActionType = "burn-structure"
	ActionStealResource   ActionType = "steal-resource"
	ActionDefendAttack    ActionType = "defend-attack"
	ActionResetRaids      ActionType = "reset-raids"
	ActionPayWeregeld     ActionType = "pay-weregeld"

	ActionChooseWhoToSmite     ActionType = "choose-who-to-smite"
	ActionChooseWhatToSmite    ActionType = "choose-what-to-smite"
	ActionCollectBounty        ActionType = "collect-bounty"
	ActionChooseWhoToValkyrie  ActionType = "choose-who-to-valkyrie"
	ActionChooseWhatToValkyrie ActionType = "choose-what-to-valkyrie"
	ActionScourgeResource      ActionType = "scourge-resource"
	ActionResetOfferings       ActionType = "reset-offerings"

	ActionConvertToRare    ActionType = "convert-to-rare"
	ActionConvertToGeld    ActionType = "convert-to-geld"
	ActionConvert          ActionType = "convert"
	ActionTradeAway        ActionType = "trade-away"
	ActionTradeFor         ActionType = "trade-for"
	ActionActivateTavern   ActionType = "activate-tavern"
	ActionActivateMeadHall ActionType = "activate-meadhall"
	ActionSacrificeSkald   ActionType = "sacrifice-skald"
	ActionPerformSkald     ActionType = "perform-skald"
	ActionGiveSkald        ActionType = "give-skald"
	ActionGiveResource     ActionType = "give-resource"

	ActionUndoCommand ActionType = "undo-command"
)

// RaidMode selects what a raid does to its target.
type RaidMode string

const (
	RaidTake RaidMode = "take"
	RaidBurn RaidMode = "burn"
	RaidBoth RaidMode = "both"
)

func (m RaidMode) takes() bool { return m == RaidTake || m == RaidBoth }
func (m RaidMode) burns() bool { return m == RaidBurn || m == RaidBoth }

// Action is one player request. UserID is the acting user; the remaining
// fields are parameters and only the ones an action type reads are required.
type Action struct {
	Type         ActionType      `json:"type"`
	UserID       string          `json:"userId"`
	Resource     ledger.Resource `json:"resource,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	RaidMode     RaidMode        `json:"raidMode,omitempty"`
	Structure    Structure       `json:"structure,omitempty"`
	Clansman     Clansman        `json:"clansman,omitempty"`
	Defend       bool            `json:"defend,omitempty"`
	Track        string          `json:"track,omitempty"`
	Good         string          `json:"good,omitempty"`
	CommandID    string          `json:"commandId,omitempty"`
}

// authorizer resolves the acting seat for an action.
type authorizer func(s *CurrentState, userID string) (*PlayerState, error)

// requireTurnHolder admits only the current player.
func requireTurnHolder(s *CurrentState, userID string) (*PlayerState, error) {
	p, err := requireParticipant(s, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentPlayer() != p {
		return nil, invalidTransition("it is not %s's turn", p.User.Name)
	}
	return p, nil
}

// requireParticipant admits any seated player, for reactive actions.
func requireParticipant(s *CurrentState, userID string) (*PlayerState, error) {
	p := s.Player(userID)
	if p == nil {
		return nil, permissionDenied("user %q is not playing this game", userID)
	}
	return p, nil
}

type actionHandler struct {
	authorize authorizer
	apply     func(t *transition, a Action) error
}

var actionHandlers = map[ActionType]actionHandler{
	ActionPickCommon:     {requireTurnHolder, pickCommon},
	ActionPickRare:       {requireTurnHolder, pickRare},
	ActionBuyMarketplace: {requireTurnHolder, buyMarketplace},
	ActionBuyTrack:       {requireTurnHolder, buyTrack},
	ActionEndTurn:        {requireTurnHolder, endTurn},

	ActionChooseWhoToRaid: {requireTurnHolder, chooseWhoToRaid},
	ActionChooseHowToRaid: {requireTurnHolder, chooseHowToRaid},
	ActionBurnStructure:   {requireTurnHolder, burnStructure},
	ActionStealResource:   {requireTurnHolder, stealResource},
	ActionDefendAttack:    {requireParticipant, defendAttack},
	ActionResetRaids:      {requireParticipant, resetRaids},
	ActionPayWeregeld:     {requireParticipant, payWeregeld},

	ActionChooseWhoToSmite:     {requireTurnHolder, chooseWhoToSmite},
	ActionChooseWhatToSmite:    {requireTurnHolder, chooseWhatToSmite},
	ActionCollectBounty:        {requireTurnHolder, collectBounty},
	ActionChooseWhoToValkyrie:  {requireTurnHolder, chooseWhoToValkyrie},
	ActionChooseWhatToValkyrie: {requireTurnHolder, chooseWhatToValkyrie},
	ActionScourgeResource:      {requireParticipant, scourgeResource},
	ActionResetOfferings:       {requireParticipant, resetOfferings},

	ActionConvertToRare:    {requireTurnHolder, convertToRare},
	ActionConvertToGeld:    {requireTurnHolder, convertToGeld},
	ActionConvert:          {requireTurnHolder, convert},
	ActionTradeAway:        {requireTurnHolder, tradeAway},
	ActionTradeFor:         {requireTurnHolder, tradeFor},
	ActionActivateTavern:   {requireParticipant, activateTavern},
	ActionActivateMeadHall: {requireParticipant, activateMeadHall},
	ActionSacrificeSkald:   {requireTurnHolder, sacrificeSkald},
	ActionPerformSkald:     {requireTurnHolder, performSkald},
	ActionGiveSkald:        {requireTurnHolder, giveSkald},
	ActionGiveResource:     {requireParticipant, giveResource},

	ActionUndoCommand: {requireParticipant, undoCommand},
}

// KnownAction reports whether t names a supported action.
func KnownAction(t ActionType) bool {
	_, ok := actionHandlers[t]
	return ok
}

// transition carries one action through the rules against a private copy of
// the game.
type transition struct {
	game     *Game
	state    *CurrentState
	actor    *PlayerState
	shuffler deck.Shuffler
	now      time.Time
	events   []rules.Event
}

func (t *transition) emit(eventType rules.EventType, targetID string, amount int, data string) {
	actorID := ""
	if t.actor != nil {
		actorID = t.actor.User.ID
	}
	evt := rules.NewEventWithAmount(eventType, t.game.ID, actorID, targetID, amount)
	evt.Data = data
	evt.Timestamp = t.now
	t.events = append(t.events, evt)
}

// opponent resolves a target seat other than the actor.
func (t *transition) opponent(userID string) (*PlayerState, error) {
	target := t.state.Player(userID)
	if target == nil {
		return nil, unknownReference("player %q is not in this game", userID)
	}
	if target == t.actor {
		return nil, invalidArgument("%s cannot target themselves", t.actor.User.Name)
	}
	return target, nil
}

func (t *transition) requirePlay() error {
	if t.state.Step != rules.StepPlay {
		return invalidTransition("action is only allowed during play, game is in %s", t.state.Step)
	}
	return nil
}

// Apply runs one action against g. The input is never modified: on success
// the updated copy and the emitted events are returned, on failure only the
// error.
func Apply(g *Game, a Action, shuffler deck.Shuffler, now time.Time) (*Game, []rules.Event, error) {
	h, ok := actionHandlers[a.Type]
	if !ok {
		return nil, nil, invalidArgument("unknown action %q", a.Type)
	}
	if g.Status != StatusStarted || g.CurrentState == nil {
		return nil, nil, invalidTransition("game %s is %s", g.ID, g.Status)
	}

	next := g.Clone()
	t := &transition{
		game:     next,
		state:    next.CurrentState,
		shuffler: shuffler,
		now:      now,
	}

	actor, err := h.authorize(t.state, a.UserID)
	if err != nil {
		return nil, nil, err
	}
	t.actor = actor

	if err := h.apply(t, a); err != nil {
		return nil, nil, err
	}
	return next, t.events, nil
}

func indexOfResource(list []ledger.Resource, r ledger.Resource) int {
	for i, v := range list {
		if v == r {
			return i
		}
	}
	return -1
}

func requireTradeable(r ledger.Resource) error {
	if !r.IsTradeable() {
		return invalidArgument("%q is not a tradeable resource", r)
	}
	return nil
}
