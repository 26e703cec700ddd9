package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// User identifies a platform user as carried in events.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomCreated is emitted when the platform pairs users into a task room.
type RoomCreated struct {
	RoomID string `json:"room"`
	TaskID string `json:"task"`
	Users  []User `json:"users"`
}

type PresenceType string

const (
	PresenceJoin  PresenceType = "join"
	PresenceLeave PresenceType = "leave"
)

// Presence is emitted when a user enters or leaves a room.
type Presence struct {
	RoomID string       `json:"room"`
	User   User         `json:"user"`
	Type   PresenceType `json:"type"`
}

// Message is a plain chat message in a room.
type Message struct {
	RoomID string `json:"room"`
	User   User   `json:"user"`
	Text   string `json:"message"`
}

// Command carries a structured interface action. The body is decoded into
// exactly one of the variants below; consumers switch on the concrete type.
type Command struct {
	RoomID string
	User   User
	Body   CommandBody
}

type CommandBody interface{ isCommand() }

// ReadyConfirm is the yes/no answer to the ready prompt.
type ReadyConfirm struct{ Answer string }

// GridChoice is the guesser's pick, "1", "2" or "3".
type GridChoice struct{ Choice string }

// WordGuess is a word submitted through the interface rather than chat.
type WordGuess struct{ Guess string }

// FreeformCommand is a slash-command style plain string.
type FreeformCommand struct{ Text string }

func (ReadyConfirm) isCommand()    {}
func (GridChoice) isCommand()      {}
func (WordGuess) isCommand()       {}
func (FreeformCommand) isCommand() {}

var ErrUnknownCommand = errors.New("unknown command event")

// DecodeCommand turns the raw command payload into a tagged variant. The
// platform sends either a bare string or an object with an "event"
// discriminator and an "answer"/"guess" argument.
func DecodeCommand(raw json.RawMessage) (CommandBody, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return FreeformCommand{Text: text}, nil
	}
	var obj struct {
		Event  string `json:"event"`
		Answer string `json:"answer"`
		Guess  string `json:"guess"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode command payload: %w", err)
	}
	switch obj.Event {
	case "confirm_ready":
		return ReadyConfirm{Answer: obj.Answer}, nil
	case "choose_grid":
		return GridChoice{Choice: obj.Answer}, nil
	case "submit_guess":
		if obj.Guess != "" {
			return WordGuess{Guess: obj.Guess}, nil
		}
		return WordGuess{Guess: obj.Answer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, obj.Event)
	}
}

// Handler receives every decoded inbound event. Implementations route them
// into the game engine.
type Handler interface {
	OnRoomCreated(ctx context.Context, ev RoomCreated)
	OnPresence(ctx context.Context, ev Presence)
	OnMessage(ctx context.Context, ev Message)
	OnCommand(ctx context.Context, ev Command)
}
