package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config carries the per-game settings of one bot process.
type Config struct {
	Mode          Mode
	TaskID        string
	WaitingRoomID string
	RoundCount    int
	RoundTimeout  time.Duration
	LeaveGrace    time.Duration
	MaxGuesses    int
	WordLength    int
	PointSystem   map[int]int // guesses remaining -> points
	ClueEnabled   bool
}

// UserRef identifies a platform user in an inbound event.
type UserRef struct {
	ID   string
	Name string
}

// Orchestrator drives the round state machine for every room the bot
// serves. It is the single writer of session state: chat events and timer
// fires both funnel through it, and every mutation happens under the
// session's lock.
type Orchestrator struct {
	cfg      Config
	api      Platform
	items    ItemSource
	turns    *TurnController
	sessions *SessionManager
	tokens   TokenIssuer
	results  ResultSink
	log      zerolog.Logger
}

func NewOrchestrator(cfg Config, api Platform, items ItemSource, log zerolog.Logger) *Orchestrator {
	if cfg.WordLength == 0 {
		cfg.WordLength = 5
	}
	if cfg.MaxGuesses == 0 {
		cfg.MaxGuesses = 6
	}
	return &Orchestrator{
		cfg:      cfg,
		api:      api,
		items:    items,
		turns:    NewTurnController(api),
		sessions: NewSessionManager(),
		log:      log,
	}
}

func (o *Orchestrator) SetTokenIssuer(ti TokenIssuer) { o.tokens = ti }
func (o *Orchestrator) SetResultSink(rs ResultSink)   { o.results = rs }

// Sessions exposes the registry, mainly for shutdown and inspection.
func (o *Orchestrator) Sessions() *SessionManager { return o.sessions }

// Shutdown drains all sessions, cancelling their timers.
func (o *Orchestrator) Shutdown() { o.sessions.Teardown() }

// withSession serializes fn against all other activity for the room.
// Events for unknown rooms (already torn down) and finished games are
// silently dropped, which makes late timer fires and stale chat events
// harmless.
func (o *Orchestrator) withSession(roomID string, fn func(s *Session)) {
	s, err := o.sessions.Get(roomID)
	if err != nil {
		o.log.Debug().Str("room", roomID).Msg("event for unknown room dropped")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GameOver {
		return
	}
	fn(s)
}

// HandleRoomCreated sets up a session when the platform pairs users into a
// new task room.
func (o *Orchestrator) HandleRoomCreated(ctx context.Context, roomID, taskID string, users []UserRef) {
	if o.cfg.TaskID != "" && taskID != o.cfg.TaskID {
		return
	}
	o.log.Info().Str("room", roomID).Str("task", taskID).Int("users", len(users)).Msg("task room created")

	items, err := o.items.Load(o.cfg.RoundCount)
	if err != nil {
		o.log.Error().Err(err).Str("room", roomID).Msg("could not load game items")
		return
	}
	s := NewSession(roomID, items)
	for _, u := range users {
		s.AddPlayer(u.ID, u.Name)
	}

	if o.cfg.Mode.SoloGuesser() {
		err = o.turns.AssignSolo(s.Players)
	} else {
		err = o.turns.AssignRoles(s.Players)
	}
	if err != nil {
		// the room cannot proceed without roles
		o.log.Error().Err(err).Str("room", roomID).Msg("role assignment failed, closing room")
		o.say(ctx, roomID, "This room could not be set up correctly and will be closed. Sorry!")
		if rerr := o.api.SetRoomReadOnly(ctx, roomID); rerr != nil {
			o.log.Warn().Err(rerr).Str("room", roomID).Msg("could not set room read-only")
		}
		return
	}

	if err := o.sessions.Create(roomID, s); err != nil {
		o.log.Error().Err(err).Str("room", roomID).Msg("rejected duplicate session create")
		return
	}
	if err := o.api.JoinRoom(ctx, roomID); err != nil {
		o.log.Warn().Err(err).Str("room", roomID).Msg("bot could not join task room")
	}
	if layout, ok := o.api.(interface {
		MoveDivider(ctx context.Context, roomID string, chatArea, taskArea int) error
	}); ok {
		if err := layout.MoveDivider(ctx, roomID, 20, 80); err != nil {
			o.log.Warn().Err(err).Str("room", roomID).Msg("could not resize room layout")
		}
	}

	for _, p := range s.Players {
		o.log.Info().Str("room", roomID).Str("user", p.ID).Str("role", string(p.Role)).Msg("role assigned")
		o.sendInstructionsTo(ctx, s, p)
	}
	o.say(ctx, roomID, o.greeting())
	o.say(ctx, roomID, "Are you ready? Send 'ready' (or click yes) once you have read the instructions.")

	// inactivity timeout covers the waiting phase too
	s.Timers.ArmRound(o.cfg.RoundTimeout, func() { o.onRoundTimeout(roomID, 0) })
}

// HandleJoin processes a presence join: leave timers are cancelled, and a
// player rejoining an established round gets the current state replayed
// without any session mutation.
func (o *Orchestrator) HandleJoin(ctx context.Context, roomID string, user UserRef) {
	if roomID == o.cfg.WaitingRoomID {
		o.log.Debug().Str("user", user.ID).Msg("user joined waiting room")
		return
	}
	o.withSession(roomID, func(s *Session) {
		p := s.PlayerByID(user.ID)
		if p == nil {
			return
		}
		if other := s.OtherPlayer(user.ID); other != nil {
			o.sayTo(ctx, roomID, other.ID, fmt.Sprintf("%s has joined the game.", user.Name))
		}
		s.Timers.UserJoined(user.ID)
		if s.Phase == PhaseInRound {
			o.log.Info().Str("room", roomID).Str("user", user.ID).Msg("replaying round state after rejoin")
			o.replayState(ctx, s, p)
		}
	})
}

// HandleLeave starts the leave-grace timer for the absent player and tells
// the partner to hold on.
func (o *Orchestrator) HandleLeave(ctx context.Context, roomID string, user UserRef) {
	if roomID == o.cfg.WaitingRoomID {
		return
	}
	o.withSession(roomID, func(s *Session) {
		p := s.PlayerByID(user.ID)
		if p == nil {
			return
		}
		if other := s.OtherPlayer(user.ID); other != nil {
			o.sayTo(ctx, roomID, other.ID,
				fmt.Sprintf("%s has left the game. Please wait a bit, your partner may rejoin.", user.Name))
		}
		s.Timers.UserLeft(user.ID, o.cfg.LeaveGrace, func() { o.onLeaveExpired(roomID, user.ID) })
	})
}

// HandleMessage processes free chat text. In the grid game an explainer
// message is the description that hands the turn to the guesser; in the
// word games the message is the guess itself.
func (o *Orchestrator) HandleMessage(ctx context.Context, roomID string, user UserRef, text string) {
	o.withSession(roomID, func(s *Session) {
		p := s.PlayerByID(user.ID)
		if p == nil {
			return
		}
		s.Timers.ResetRound()
		p.MessageCount++
		if s.Phase != PhaseInRound {
			return
		}
		switch o.cfg.Mode {
		case ModeGrid:
			if p.Role == RoleExplainer && s.TurnHolder == p.ID {
				o.log.Info().Str("room", roomID).Msg("description received, turn moves to guesser")
				g := s.Guesser()
				if err := o.turns.GrantTurn(ctx, s, g.ID); err != nil {
					o.log.Warn().Err(err).Str("room", roomID).Msg("could not hand turn to guesser")
				}
				o.sayTo(ctx, roomID, g.ID,
					"Click on the number of the grid the description above matches: 1, 2 or 3.")
			}
		default:
			o.applyWordGuess(ctx, s, p, text)
		}
	})
}

// HandleReady tracks readiness; the round starts when the last outstanding
// player becomes ready.
func (o *Orchestrator) HandleReady(ctx context.Context, roomID, userID, answer string) {
	o.withSession(roomID, func(s *Session) {
		s.Timers.ResetRound()
		if s.Phase != PhaseWaitingReady {
			return
		}
		if answer != "yes" {
			o.sayTo(ctx, roomID, userID,
				"OK, read the instructions carefully and confirm once you are ready.")
			return
		}
		p := s.PlayerByID(userID)
		if p == nil {
			return
		}
		if p.Status == StatusReady || p.Status == StatusDone {
			o.sayTo(ctx, roomID, userID, "You have already clicked 'ready'.")
			return
		}
		p.Status = StatusReady
		for _, q := range s.Players {
			if q.Status != StatusReady && q.Status != StatusDone {
				o.sayTo(ctx, roomID, userID, "Now waiting for your partner to click 'ready'.")
				return
			}
		}
		o.say(ctx, roomID, "Woo-Hoo! The game will begin now.")
		o.startRound(ctx, s)
	})
}

// HandleGridChoice resolves a grid round from the guesser's button choice.
func (o *Orchestrator) HandleGridChoice(ctx context.Context, roomID, userID, choice string) {
	o.withSession(roomID, func(s *Session) {
		s.Timers.ResetRound()
		if o.cfg.Mode != ModeGrid || s.Phase != PhaseInRound {
			return
		}
		if s.TurnHolder != userID {
			return
		}
		item, ok := s.CurrentItem()
		if !ok {
			return
		}
		round := s.Round
		o.log.Info().Str("room", roomID).Str("guess", choice).Msg("grid guess")
		correct := EvaluateGridGuess(choice, item.TargetGrid)
		points := 0
		if correct {
			points = 1
			o.say(ctx, roomID, "The guess was correct! You both win this round.")
		} else {
			o.sayColored(ctx, roomID, warningColor, "The guess was false. You both lose this round.")
		}
		o.resolveRound(ctx, s, round, RoundResult{Guess: choice, Correct: correct, Points: points})
	})
}

// HandleWordGuess resolves or advances a word round from a structured
// guess command. Plain-text guesses arrive through HandleMessage instead.
func (o *Orchestrator) HandleWordGuess(ctx context.Context, roomID, userID, guess string) {
	o.withSession(roomID, func(s *Session) {
		s.Timers.ResetRound()
		if o.cfg.Mode == ModeGrid || s.Phase != PhaseInRound {
			return
		}
		p := s.PlayerByID(userID)
		if p == nil {
			return
		}
		o.applyWordGuess(ctx, s, p, guess)
	})
}

func (o *Orchestrator) applyWordGuess(ctx context.Context, s *Session, p *Player, guess string) {
	if p.Role != RoleGuesser {
		return
	}
	item, ok := s.CurrentItem()
	if !ok {
		return
	}
	guess = strings.ToLower(strings.TrimSpace(guess))
	o.log.Info().Str("room", s.RoomID).Str("guess", guess).Msg("word guess")
	if err := ValidateGuess(guess, o.cfg.WordLength); err != nil {
		o.sayTo(ctx, s.RoomID, p.ID,
			fmt.Sprintf("The guess must be a single %d-letter word. Try again!", o.cfg.WordLength))
		return
	}
	round := s.Round
	if EvaluateWordGuess(guess, item.TargetWord) {
		remaining := o.cfg.MaxGuesses - s.GuessesUsed
		o.say(ctx, s.RoomID, "You guessed the word!")
		o.resolveRound(ctx, s, round, RoundResult{Guess: guess, Correct: true, Points: o.cfg.PointSystem[remaining]})
		return
	}
	s.GuessesUsed++
	if s.GuessesUsed >= o.cfg.MaxGuesses {
		o.say(ctx, s.RoomID,
			fmt.Sprintf("All %d guesses have been used. You lost this round.", o.cfg.MaxGuesses))
		o.resolveRound(ctx, s, round, RoundResult{Guess: guess})
		return
	}
	if o.cfg.Mode == ModeWordFeedback {
		o.say(ctx, s.RoomID, FormatFeedback(EvaluateLetterFeedback(guess, item.TargetWord)))
	}
	o.sayTo(ctx, s.RoomID, p.ID, "Make a new guess:")
}

// startRound presents the head item and hands out the first turn. Caller
// holds the session lock.
func (o *Orchestrator) startRound(ctx context.Context, s *Session) {
	item, ok := s.CurrentItem()
	if !ok {
		o.terminate(ctx, s, EndSuccess)
		return
	}
	s.Round++
	s.GuessesUsed = 0
	s.Phase = PhaseInRound
	round := s.Round
	roomID := s.RoomID
	s.Timers.ArmRound(o.cfg.RoundTimeout, func() { o.onRoundTimeout(roomID, round) })

	o.log.Info().Str("room", roomID).Int("round", round).Msg("round started")
	o.say(ctx, roomID, fmt.Sprintf("Let's start round %d!", round))

	switch o.cfg.Mode {
	case ModeGrid:
		o.presentGrids(ctx, s, item)
		ex, g := s.Explainer(), s.Guesser()
		o.sayTo(ctx, roomID, ex.ID, "Generate the description for the given target.")
		o.sayTo(ctx, roomID, g.ID, "Wait for the description from the explainer.")
		if err := o.turns.GrantTurn(ctx, s, ex.ID); err != nil {
			o.log.Warn().Err(err).Str("room", roomID).Msg("could not grant first turn")
		}
	default:
		g := s.Guesser()
		if o.cfg.ClueEnabled && item.Clue != "" {
			o.sayTo(ctx, roomID, g.ID, "CLUE for the word: "+strings.ToLower(item.Clue))
		}
		o.sayTo(ctx, roomID, g.ID, "Make your guess:")
		if err := o.turns.GrantTurn(ctx, s, g.ID); err != nil {
			o.log.Warn().Err(err).Str("room", roomID).Msg("could not grant first turn")
		}
	}
}

// resolveRound applies one round's outcome exactly once: score and title
// update, result record, queue pop, then either the next round or
// termination. A second trigger for the same round (a timeout racing a
// last-moment guess) finds the round counter already advanced and becomes
// a no-op. Caller holds the session lock.
func (o *Orchestrator) resolveRound(ctx context.Context, s *Session, round int, res RoundResult) {
	if s.GameOver || s.Phase != PhaseInRound || s.Round != round {
		return
	}
	res.RoomID = s.RoomID
	res.Round = round
	s.Score += res.Points
	if res.Correct {
		s.Correct++
	} else {
		s.Wrong++
	}
	o.log.Info().Str("room", s.RoomID).Int("round", round).Bool("correct", res.Correct).
		Int("points", res.Points).Msg("round resolved")
	o.updateTitle(ctx, s)
	if o.results != nil {
		if err := o.results.RecordRound(ctx, res); err != nil {
			o.log.Warn().Err(err).Str("room", s.RoomID).Msg("could not record round result")
		}
	}
	s.Queue.PopFront()
	if s.Queue.IsExhausted() {
		o.terminate(ctx, s, EndSuccess)
		return
	}
	o.startRound(ctx, s)
}

// onRoundTimeout is the round/inactivity timer callback. round 0 is the
// waiting phase, where a timeout closes the room; during a round it forces
// a zero-reward resolution, identical to a failed guess.
func (o *Orchestrator) onRoundTimeout(roomID string, round int) {
	ctx := context.Background()
	o.withSession(roomID, func(s *Session) {
		if round == 0 {
			if s.Phase != PhaseWaitingReady {
				return
			}
			o.say(ctx, roomID, "The room is closing because of inactivity.")
			o.terminate(ctx, s, EndTimeout)
			return
		}
		if s.Phase != PhaseInRound || s.Round != round {
			return // a guess resolved this round first
		}
		o.sayColored(ctx, roomID, warningColor, "Time is up! No reward for this round.")
		o.resolveRound(ctx, s, round, RoundResult{Timeout: true})
	})
}

// onLeaveExpired fires when a player's leave-grace period runs out.
func (o *Orchestrator) onLeaveExpired(roomID, userID string) {
	ctx := context.Background()
	o.withSession(roomID, func(s *Session) {
		o.log.Info().Str("room", roomID).Str("user", userID).Msg("leave grace expired")
		o.say(ctx, roomID, "Your partner did not return in time. The room is closing.")
		o.terminate(ctx, s, EndUserLeft)
	})
}

// terminate ends the game for the room: tokens, read-only room, user
// removal, session teardown. Caller holds the session lock; the cleared
// session makes every later event for the room a no-op.
func (o *Orchestrator) terminate(ctx context.Context, s *Session, status string) {
	s.GameOver = true
	s.Phase = PhaseTerminated
	if status == EndSuccess {
		o.say(ctx, s.RoomID, "The experiment is over 🎉 🎉 thank you very much for your time!")
	}
	o.issueTokens(ctx, s, status)
	o.say(ctx, s.RoomID, "The room is closing, see you next time.")
	for _, p := range s.Players {
		p.Status = StatusDone
	}
	if err := o.api.SetRoomReadOnly(ctx, s.RoomID); err != nil {
		o.log.Warn().Err(err).Str("room", s.RoomID).Msg("could not set room read-only")
	}
	for _, p := range s.Players {
		if err := o.api.RemoveUserFromRoom(ctx, s.RoomID, p.ID); err != nil {
			o.log.Warn().Err(err).Str("room", s.RoomID).Str("user", p.ID).Msg("could not remove user")
		}
	}
	o.log.Info().Str("room", s.RoomID).Str("status", status).Int("score", s.Score).Msg("session terminated")
	o.sessions.Clear(s.RoomID)
}

func (o *Orchestrator) issueTokens(ctx context.Context, s *Session, status string) {
	if o.tokens == nil {
		return
	}
	for _, p := range s.Players {
		tok, err := o.tokens.Issue(s.RoomID, p.ID, status)
		if err != nil {
			o.log.Error().Err(err).Str("room", s.RoomID).Str("user", p.ID).Msg("could not issue completion token")
			continue
		}
		o.sayTo(ctx, s.RoomID, p.ID,
			"Please remember to save your token before you close this window. Your token: "+tok)
	}
}

// replayState re-sends the current round to a rejoining player without
// touching session state.
func (o *Orchestrator) replayState(ctx context.Context, s *Session, p *Player) {
	o.sendInstructionsTo(ctx, s, p)
	item, ok := s.CurrentItem()
	if !ok {
		return
	}
	switch {
	case p.Role == RoleExplainer:
		o.presentTargetGrid(ctx, s, item)
	case o.cfg.Mode == ModeGrid:
		o.presentChoiceGrids(ctx, s, item)
	default:
		o.sayTo(ctx, s.RoomID, p.ID, "Make your guess:")
	}
	if s.TurnHolder == p.ID {
		if err := o.api.SetPermission(ctx, s.RoomID, p.ID, true); err != nil {
			o.log.Warn().Err(err).Str("room", s.RoomID).Msg("could not restore turn permission")
		}
	}
}

func (o *Orchestrator) presentGrids(ctx context.Context, s *Session, item GameItem) {
	o.presentTargetGrid(ctx, s, item)
	o.presentChoiceGrids(ctx, s, item)
}

func (o *Orchestrator) presentTargetGrid(ctx context.Context, s *Session, item GameItem) {
	ex := s.Explainer()
	if ex == nil {
		return
	}
	if i := gridIndex(item.TargetGrid); i >= 0 && i < len(item.Grids) {
		o.sayTo(ctx, s.RoomID, ex.ID, "Your target grid:\n"+item.Grids[i])
	}
}

func (o *Orchestrator) presentChoiceGrids(ctx context.Context, s *Session, item GameItem) {
	g := s.Guesser()
	if g == nil {
		return
	}
	var b strings.Builder
	for i, grid := range item.Grids {
		fmt.Fprintf(&b, "Grid %d:\n%s\n", i+1, grid)
	}
	o.sayTo(ctx, s.RoomID, g.ID, b.String())
}

func gridIndex(name string) int {
	switch name {
	case "first":
		return 0
	case "second":
		return 1
	case "third":
		return 2
	}
	return -1
}

func (o *Orchestrator) updateTitle(ctx context.Context, s *Session) {
	title := fmt.Sprintf("Score: %d 🏆 | Correct: %d ✅ | Wrong: %d ❌", s.Score, s.Correct, s.Wrong)
	if err := o.api.SetRoomTitle(ctx, s.RoomID, title); err != nil {
		o.log.Warn().Err(err).Str("room", s.RoomID).Msg("could not update room title")
	}
}

func (o *Orchestrator) greeting() string {
	if o.cfg.Mode == ModeGrid {
		return "Welcome! One of you describes a target grid, the other picks it out of three. Good luck!"
	}
	return "Welcome! Guess the hidden word, one round at a time. Good luck!"
}

func (o *Orchestrator) sendInstructionsTo(ctx context.Context, s *Session, p *Player) {
	switch {
	case p.Role == RoleExplainer:
		o.sayTo(ctx, s.RoomID, p.ID,
			"You are the explainer. Describe your target grid so your partner can pick it.")
	case o.cfg.Mode == ModeGrid:
		o.sayTo(ctx, s.RoomID, p.ID,
			"You are the guesser. Read the description and choose the matching grid.")
	case o.cfg.Mode == ModeWordFeedback:
		o.sayTo(ctx, s.RoomID, p.ID,
			fmt.Sprintf("Guess the %d-letter word. After each guess you get per-letter feedback: "+
				"exact, present or absent. You have %d guesses per round.",
				o.cfg.WordLength, o.cfg.MaxGuesses))
	default:
		o.sayTo(ctx, s.RoomID, p.ID,
			fmt.Sprintf("Guess the %d-letter word. You have %d guesses per round.",
				o.cfg.WordLength, o.cfg.MaxGuesses))
	}
}

const warningColor = "FireBrick"

func (o *Orchestrator) say(ctx context.Context, roomID, text string) {
	if err := o.api.SendText(ctx, roomID, text, nil); err != nil {
		o.log.Warn().Err(err).Str("room", roomID).Msg("could not send message")
	}
}

func (o *Orchestrator) sayTo(ctx context.Context, roomID, userID, text string) {
	if err := o.api.SendText(ctx, roomID, text, &SendOpts{ReceiverID: userID}); err != nil {
		o.log.Warn().Err(err).Str("room", roomID).Str("user", userID).Msg("could not send message")
	}
}

func (o *Orchestrator) sayColored(ctx context.Context, roomID, color, text string) {
	if err := o.api.SendText(ctx, roomID, text, &SendOpts{Color: color}); err != nil {
		o.log.Warn().Err(err).Str("room", roomID).Msg("could not send message")
	}
}
