package game

import "context"

type Phase string

const (
	PhaseWaitingReady Phase = "WaitingForReady"
	PhaseInRound      Phase = "InRound"
	PhaseTerminated   Phase = "Terminated"
)

type Mode string

const (
	ModeGrid          Mode = "grid"
	ModeWordFeedback  Mode = "word_feedback"
	ModeWordGuessOnly Mode = "word_guess"
)

// SoloGuesser reports whether the mode runs with a single player
// instead of an explainer/guesser pair.
func (m Mode) SoloGuesser() bool { return m != ModeGrid }

type Role string

const (
	RoleNone      Role = ""
	RoleExplainer Role = "explainer"
	RoleGuesser   Role = "guesser"
)

type PlayerStatus string

const (
	StatusJoined PlayerStatus = "joined"
	StatusReady  PlayerStatus = "ready"
	StatusDone   PlayerStatus = "done"
)

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         Role         `json:"role"`
	Status       PlayerStatus `json:"status"`
	MessageCount int          `json:"messageCount"`
}

// GameItem is one round's payload. Grid rounds carry three grids and the
// name of the target; word rounds carry the target word and an optional clue.
type GameItem struct {
	Grids      []string `json:"grids,omitempty"`
	TargetGrid string   `json:"target_grid,omitempty"`
	TargetWord string   `json:"target_word,omitempty"`
	Clue       string   `json:"clue,omitempty"`
}

// End statuses recorded on completion tokens.
const (
	EndSuccess  = "success"
	EndTimeout  = "timeout"
	EndUserLeft = "user_left"
)

// SendOpts narrows a text message to one receiver and/or colors it.
// A nil value means a plain room-wide message.
type SendOpts struct {
	ReceiverID string
	Color      string
}

// Platform is the chat-platform collaborator. Implementations talk to the
// real server; the engine only supplies semantic parameters.
type Platform interface {
	JoinRoom(ctx context.Context, roomID string) error
	SendText(ctx context.Context, roomID, text string, opts *SendOpts) error
	SetPermission(ctx context.Context, roomID, userID string, canSend bool) error
	SetRoomReadOnly(ctx context.Context, roomID string) error
	RemoveUserFromRoom(ctx context.Context, roomID, userID string) error
	SetRoomTitle(ctx context.Context, roomID, title string) error
}

// TokenIssuer mints the completion token each player receives when a room
// ends, carrying the end status for the payout pipeline.
type TokenIssuer interface {
	Issue(roomID, userID, status string) (string, error)
}

// ItemSource loads the items a new room plays through.
type ItemSource interface {
	Load(n int) ([]GameItem, error)
}

// RoundResult is one resolved round, as handed to a ResultSink.
type RoundResult struct {
	RoomID  string
	Round   int
	Guess   string
	Correct bool
	Points  int
	Timeout bool
}

// ResultSink records round outcomes. Recording failures must not affect
// game progress.
type ResultSink interface {
	RecordRound(ctx context.Context, r RoundResult) error
}
