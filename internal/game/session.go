package game

import "sync"

// Session is the aggregate root for one room's game. It exclusively owns
// its RoundQueue and RoomTimers; nobody else pops the queue or cancels the
// timers. All mutations happen under mu, which the orchestrator acquires
// before touching any field — timer callbacks re-enter through the same
// lock, so a timeout and a late guess can never interleave on the same
// round.
type Session struct {
	mu sync.Mutex

	RoomID  string
	Players []*Player
	Queue   *RoundQueue
	Timers  *RoomTimers

	Phase       Phase
	Round       int // 1-based, 0 before the first round starts
	TurnHolder  string
	Score       int
	Correct     int
	Wrong       int
	GuessesUsed int
	GameOver    bool
}

func NewSession(roomID string, items []GameItem) *Session {
	return &Session{
		RoomID: roomID,
		Queue:  NewRoundQueue(items),
		Timers: NewRoomTimers(),
		Phase:  PhaseWaitingReady,
	}
}

// Close cancels every timer owned by the session. Called exactly once, by
// SessionManager.Clear.
func (s *Session) Close() {
	s.Timers.CancelAll()
}

// AddPlayer registers a user in the room with the initial joined status.
func (s *Session) AddPlayer(id, name string) {
	s.Players = append(s.Players, &Player{ID: id, Name: name, Status: StatusJoined})
}

// PlayerByID returns the player with the given id, or nil.
func (s *Session) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// OtherPlayer returns the partner of the given player in a two-player room,
// or nil for solo rooms.
func (s *Session) OtherPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

// Explainer returns the player holding the explainer role, or nil.
func (s *Session) Explainer() *Player { return s.byRole(RoleExplainer) }

// Guesser returns the player holding the guesser role, or nil.
func (s *Session) Guesser() *Player { return s.byRole(RoleGuesser) }

func (s *Session) byRole(r Role) *Player {
	for _, p := range s.Players {
		if p.Role == r {
			return p
		}
	}
	return nil
}

// CurrentItem is the head of the round queue. ok is false once the queue is
// exhausted.
func (s *Session) CurrentItem() (GameItem, bool) {
	return s.Queue.PeekHead()
}
