package platform

import (
	"context"

	"github.com/averdin/gamebots/internal/game"
	"github.com/rs/zerolog"
)

// Dispatcher routes decoded platform events into the orchestrator. Events
// originating from the bot's own user are discarded here, before they reach
// game logic.
type Dispatcher struct {
	games *game.Orchestrator
	botID string
	log   zerolog.Logger
}

var _ Handler = (*Dispatcher)(nil)

func NewDispatcher(o *game.Orchestrator, botID string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{games: o, botID: botID, log: log}
}

func (d *Dispatcher) OnRoomCreated(ctx context.Context, ev RoomCreated) {
	users := make([]game.UserRef, 0, len(ev.Users))
	for _, u := range ev.Users {
		users = append(users, game.UserRef{ID: u.ID, Name: u.Name})
	}
	d.games.HandleRoomCreated(ctx, ev.RoomID, ev.TaskID, users)
}

func (d *Dispatcher) OnPresence(ctx context.Context, ev Presence) {
	if ev.User.ID == d.botID {
		return
	}
	user := game.UserRef{ID: ev.User.ID, Name: ev.User.Name}
	switch ev.Type {
	case PresenceJoin:
		d.games.HandleJoin(ctx, ev.RoomID, user)
	case PresenceLeave:
		d.games.HandleLeave(ctx, ev.RoomID, user)
	default:
		d.log.Debug().Str("type", string(ev.Type)).Msg("unknown presence type")
	}
}

func (d *Dispatcher) OnMessage(ctx context.Context, ev Message) {
	if ev.User.ID == d.botID {
		return
	}
	d.games.HandleMessage(ctx, ev.RoomID, game.UserRef{ID: ev.User.ID, Name: ev.User.Name}, ev.Text)
}

func (d *Dispatcher) OnCommand(ctx context.Context, ev Command) {
	if ev.User.ID == d.botID {
		return
	}
	switch body := ev.Body.(type) {
	case ReadyConfirm:
		d.games.HandleReady(ctx, ev.RoomID, ev.User.ID, body.Answer)
	case GridChoice:
		d.games.HandleGridChoice(ctx, ev.RoomID, ev.User.ID, body.Choice)
	case WordGuess:
		d.games.HandleWordGuess(ctx, ev.RoomID, ev.User.ID, body.Guess)
	case FreeformCommand:
		d.games.HandleMessage(ctx, ev.RoomID, game.UserRef{ID: ev.User.ID, Name: ev.User.Name}, body.Text)
	}
}
