package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

// CommandName identifies a registered reversible command.
type CommandName string

const CommandBuyGood CommandName = "buyGood"

// CommandData is the payload of a buyGood command. The good is copied so an
// undo refunds exactly what was paid.
type CommandData struct {
	PlayerUserID string `json:"playerUserId"`
	Good         Good   `json:"good"`
}

// Command is an entry of the game's command log.
type Command struct {
	ID        string      `json:"id"`
	Name      CommandName `json:"name"`
	Message   string      `json:"message"`
	Data      CommandData `json:"data"`
	Round     int         `json:"round"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Clone returns an independent copy.
func (c Command) Clone() Command {
	c.Data.Good = c.Data.Good.Clone()
	return c
}

type commandHandler struct {
	execute func(s *CurrentState, data CommandData) error
	undo    func(s *CurrentState, data CommandData) error
}

// Only purchases of structures and clansmen are logged. Raids, offerings,
// track slots and conversions apply directly and cannot be undone.
var commandHandlers = map[CommandName]commandHandler{
	CommandBuyGood: {execute: executeBuyGood, undo: undoBuyGood},
}

func newBuyGoodCommand(p *PlayerState, good Good, round int, now time.Time) Command {
	return Command{
		ID:      uuid.NewString(),
		Name:    CommandBuyGood,
		Message: fmt.Sprintf("%s bought a %s", p.User.Name, good.Name),
		Data: CommandData{
			PlayerUserID: p.User.ID,
			Good:         good.Clone(),
		},
		Round:     round,
		CreatedAt: now,
	}
}

func (t *transition) executeCommand(cmd Command) error {
	h, ok := commandHandlers[cmd.Name]
	if !ok {
		return unknownReference("unknown command %q", cmd.Name)
	}
	if err := h.execute(t.state, cmd.Data); err != nil {
		return err
	}
	t.game.Commands = append(t.game.Commands, cmd)
	return nil
}

// undoCommand reverses a purchase made by the actor in the current round.
func undoCommand(t *transition, a Action) error {
	if err := t.requirePlay(); err != nil {
		return err
	}
	idx := -1
	for i, c := range t.game.Commands {
		if c.ID == a.CommandID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return unknownReference("command %q not found", a.CommandID)
	}
	cmd := t.game.Commands[idx]
	if cmd.Data.PlayerUserID != t.actor.User.ID {
		return permissionDenied("%s cannot undo a command made by another player", t.actor.User.Name)
	}
	if cmd.Round != t.state.Round {
		return invalidTransition("purchases can only be undone in the round they were made")
	}
	h, ok := commandHandlers[cmd.Name]
	if !ok {
		return unknownReference("unknown command %q", cmd.Name)
	}
	if err := h.undo(t.state, cmd.Data); err != nil {
		return err
	}

	t.game.Commands = append(t.game.Commands[:idx], t.game.Commands[idx+1:]...)
	t.emit(rules.EventCommandUndone, cmd.Data.Good.Name, 0, cmd.ID)
	return nil
}

func executeBuyGood(s *CurrentState, data CommandData) error {
	p := s.Player(data.PlayerUserID)
	if p == nil {
		return unknownReference("player %q is not in this game", data.PlayerUserID)
	}
	good := data.Good
	switch good.Kind {
	case GoodStructure:
		if !Structure(good.Name).Valid() {
			return invalidArgument("unknown structure %q", good.Name)
		}
	case GoodClansman:
		if !Clansman(good.Name).Valid() {
			return invalidArgument("unknown clansman %q", good.Name)
		}
	default:
		return invalidArgument("%s goods are not logged", good.Kind)
	}

	if err := payForGood(p, good); err != nil {
		return err
	}
	if good.Kind == GoodStructure {
		p.Purchased[Structure(good.Name)]++
	} else {
		p.Clansmen[Clansman(good.Name)]++
	}
	return nil
}

func undoBuyGood(s *CurrentState, data CommandData) error {
	p := s.Player(data.PlayerUserID)
	if p == nil {
		return unknownReference("player %q is not in this game", data.PlayerUserID)
	}
	good := data.Good
	switch good.Kind {
	case GoodStructure:
		structure := Structure(good.Name)
		if p.Purchased[structure] < 1 {
			return invalidTransition("%s has no unbuilt %s to return", p.User.Name, structure)
		}
		p.Purchased[structure]--
	case GoodClansman:
		clansman := Clansman(good.Name)
		if p.Clansmen[clansman] < 1 {
			return invalidTransition("%s has no %s to return", p.User.Name, clansman)
		}
		p.Clansmen[clansman]--
	default:
		return invalidArgument("%s goods are not logged", good.Kind)
	}
	refundGood(p, good)
	return nil
}
