package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func gridItem(target string) GameItem {
	return GameItem{Grids: []string{"####", "....", "#.#."}, TargetGrid: target}
}

var testPoints = map[int]int{6: 100, 5: 50, 4: 25, 3: 10, 2: 5, 1: 1}

func newGridOrchestrator(t *testing.T, items ...GameItem) (*Orchestrator, *fakePlatform, *fakeSink) {
	t.Helper()
	fp := newFakePlatform()
	sink := &fakeSink{}
	cfg := Config{
		Mode:          ModeGrid,
		TaskID:        "task1",
		WaitingRoomID: "waiting",
		RoundCount:    len(items),
		RoundTimeout:  time.Minute,
		LeaveGrace:    time.Minute,
	}
	o := NewOrchestrator(cfg, fp, fixedItems(items), zerolog.Nop())
	o.SetTokenIssuer(fakeTokens{})
	o.SetResultSink(sink)
	return o, fp, sink
}

func newWordOrchestrator(t *testing.T, mode Mode, items ...GameItem) (*Orchestrator, *fakePlatform, *fakeSink) {
	t.Helper()
	fp := newFakePlatform()
	sink := &fakeSink{}
	cfg := Config{
		Mode:          mode,
		TaskID:        "task1",
		WaitingRoomID: "waiting",
		RoundCount:    len(items),
		RoundTimeout:  time.Minute,
		LeaveGrace:    time.Minute,
		MaxGuesses:    6,
		WordLength:    5,
		PointSystem:   testPoints,
	}
	o := NewOrchestrator(cfg, fp, fixedItems(items), zerolog.Nop())
	o.SetTokenIssuer(fakeTokens{})
	o.SetResultSink(sink)
	return o, fp, sink
}

func pairUp(t *testing.T, o *Orchestrator, roomID string) *Session {
	t.Helper()
	ctx := context.Background()
	o.HandleRoomCreated(ctx, roomID, "task1", []UserRef{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}})
	s, err := o.Sessions().Get(roomID)
	if err != nil {
		t.Fatalf("session should exist after room creation: %v", err)
	}
	return s
}

func TestFullGridSession(t *testing.T) {
	ctx := context.Background()
	o, fp, sink := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")

	if s.Phase != PhaseWaitingReady {
		t.Fatalf("expected waiting phase, got %s", s.Phase)
	}

	o.HandleReady(ctx, "r1", "a", "yes")
	if s.Phase != PhaseWaitingReady {
		t.Fatal("round must not start before both players are ready")
	}
	if !fp.sawTextTo("a", "waiting for your partner") {
		t.Fatal("first-ready player should get a waiting notice")
	}

	o.HandleReady(ctx, "r1", "b", "yes")
	if s.Phase != PhaseInRound || s.Round != 1 {
		t.Fatalf("expected round 1 in progress, got phase %s round %d", s.Phase, s.Round)
	}

	ex, g := s.Explainer(), s.Guesser()
	if ex == nil || g == nil {
		t.Fatal("both roles should be assigned")
	}
	if s.TurnHolder != ex.ID {
		t.Fatalf("explainer should hold the first turn, holder = %q", s.TurnHolder)
	}

	// round 1: description hands the turn over, then a correct choice
	o.HandleMessage(ctx, "r1", UserRef{ID: ex.ID, Name: ex.Name}, "the one with the full top row")
	if s.TurnHolder != g.ID {
		t.Fatalf("guesser should hold the turn after the description, holder = %q", s.TurnHolder)
	}
	o.HandleGridChoice(ctx, "r1", g.ID, "1")

	if s.Score != 1 || s.Round != 2 {
		t.Fatalf("expected score 1 and round 2, got score %d round %d", s.Score, s.Round)
	}

	// round 2: wrong choice empties the queue and ends the experiment
	o.HandleMessage(ctx, "r1", UserRef{ID: ex.ID, Name: ex.Name}, "the empty one")
	o.HandleGridChoice(ctx, "r1", g.ID, "3")

	if _, err := o.Sessions().Get("r1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("terminated session should be gone, got %v", err)
	}
	if !fp.sawTextTo("a", "tok-r1-a-success") || !fp.sawTextTo("b", "tok-r1-b-success") {
		t.Fatal("both players should receive a completion token")
	}
	if rooms := fp.readOnlyRooms(); len(rooms) != 1 || rooms[0] != "r1" {
		t.Fatalf("room should be set read-only, got %v", rooms)
	}
	if got := fp.lastTitle(); got != "Score: 1 🏆 | Correct: 1 ✅ | Wrong: 1 ❌" {
		t.Fatalf("unexpected final title %q", got)
	}

	results := sink.recorded()
	if len(results) != 2 {
		t.Fatalf("expected 2 recorded rounds, got %d", len(results))
	}
	if !results[0].Correct || results[0].Points != 1 {
		t.Fatalf("round 1 should be a correct 1-point result: %+v", results[0])
	}
	if results[1].Correct || results[1].Points != 0 {
		t.Fatalf("round 2 should be a zero-point miss: %+v", results[1])
	}
}

func TestRepeatedReadyIsRejected(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"))
	s := pairUp(t, o, "r1")

	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "a", "yes")
	if s.Phase != PhaseWaitingReady {
		t.Fatal("repeated ready from the same player must not start the round")
	}
	if !fp.sawTextTo("a", "already clicked 'ready'") {
		t.Fatal("player should be told they were already ready")
	}
}

func TestReadyNoAnswer(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"))
	s := pairUp(t, o, "r1")

	o.HandleReady(ctx, "r1", "a", "no")
	if s.Players[0].Status == StatusReady || s.Players[1].Status == StatusReady {
		t.Fatal("answering no must not mark anyone ready")
	}
	if !fp.sawTextTo("a", "read the instructions") {
		t.Fatal("player should be asked to re-read the instructions")
	}
}

func TestDuplicateRoomCreationRejected(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newGridOrchestrator(t, gridItem("first"))
	pairUp(t, o, "r1")

	o.HandleRoomCreated(ctx, "r1", "task1", []UserRef{{ID: "x", Name: "X"}, {ID: "y", Name: "Y"}})
	if o.Sessions().Len() != 1 {
		t.Fatalf("duplicate creation must not add a session, len = %d", o.Sessions().Len())
	}
	s, _ := o.Sessions().Get("r1")
	if s.PlayerByID("x") != nil {
		t.Fatal("the original session must not be replaced")
	}
}

func TestRoomForOtherTaskIgnored(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newGridOrchestrator(t, gridItem("first"))
	o.HandleRoomCreated(ctx, "r1", "other-task", []UserRef{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	if o.Sessions().Len() != 0 {
		t.Fatal("rooms for other tasks must be ignored")
	}
}

func TestRoleAssignmentFailureClosesRoom(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"))
	o.HandleRoomCreated(ctx, "r1", "task1", []UserRef{{ID: "a", Name: "Alone"}})

	if o.Sessions().Len() != 0 {
		t.Fatal("a room that cannot assign roles must not keep a session")
	}
	if rooms := fp.readOnlyRooms(); len(rooms) != 1 {
		t.Fatalf("the broken room should be closed, got %v", rooms)
	}
}

func TestStaleEventsAreDropped(t *testing.T) {
	ctx := context.Background()
	o, _, sink := newGridOrchestrator(t, gridItem("first"))

	// no session exists for this room; nothing may panic or resolve
	o.HandleMessage(ctx, "ghost", UserRef{ID: "a"}, "hello")
	o.HandleGridChoice(ctx, "ghost", "a", "1")
	o.HandleReady(ctx, "ghost", "a", "yes")
	o.HandleLeave(ctx, "ghost", UserRef{ID: "a"})
	o.onRoundTimeout("ghost", 1)

	if len(sink.recorded()) != 0 {
		t.Fatal("stale events must not produce results")
	}
}

func TestTimeoutResolvesRoundWithZeroReward(t *testing.T) {
	ctx := context.Background()
	o, fp, sink := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "b", "yes")

	o.onRoundTimeout("r1", 1)

	if s.Round != 2 || s.Score != 0 {
		t.Fatalf("timeout should advance to round 2 with no points, got round %d score %d", s.Round, s.Score)
	}
	if !fp.sawText("Time is up") {
		t.Fatal("players should be told about the timeout")
	}
	r1 := sink.forRound(1)
	if len(r1) != 1 || !r1[0].Timeout {
		t.Fatalf("round 1 should be recorded as a timeout, got %+v", r1)
	}
}

func TestGuessBeatsTimeoutRace(t *testing.T) {
	ctx := context.Background()
	o, _, sink := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "b", "yes")
	ex, g := s.Explainer(), s.Guesser()

	o.HandleMessage(ctx, "r1", UserRef{ID: ex.ID}, "described")
	o.HandleGridChoice(ctx, "r1", g.ID, "1") // resolves round 1
	o.onRoundTimeout("r1", 1)                // stale fire for the same round

	r1 := sink.forRound(1)
	if len(r1) != 1 {
		t.Fatalf("round 1 must resolve exactly once, got %d", len(r1))
	}
	if !r1[0].Correct {
		t.Fatal("the guess's outcome should stand, not the timeout's")
	}
	if s.Round != 2 {
		t.Fatalf("expected round 2 after single resolution, got %d", s.Round)
	}
}

func TestTimeoutBeatsGuessRace(t *testing.T) {
	ctx := context.Background()
	o, _, sink := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "b", "yes")
	ex, g := s.Explainer(), s.Guesser()

	o.HandleMessage(ctx, "r1", UserRef{ID: ex.ID}, "described")
	o.onRoundTimeout("r1", 1)                // timeout wins round 1
	o.HandleGridChoice(ctx, "r1", g.ID, "1") // late guess; turn belongs to the explainer again

	r1 := sink.forRound(1)
	if len(r1) != 1 || !r1[0].Timeout {
		t.Fatalf("round 1 must resolve exactly once as a timeout, got %+v", r1)
	}
	if len(sink.forRound(2)) != 0 {
		t.Fatal("the late guess must not resolve round 2")
	}
	if s.Round != 2 {
		t.Fatalf("expected round 2 in progress, got %d", s.Round)
	}
}

func TestConcurrentResolutionHappensOnce(t *testing.T) {
	ctx := context.Background()
	o, _, sink := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "b", "yes")
	ex, g := s.Explainer(), s.Guesser()
	o.HandleMessage(ctx, "r1", UserRef{ID: ex.ID}, "described")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.HandleGridChoice(ctx, "r1", g.ID, "1")
	}()
	go func() {
		defer wg.Done()
		o.onRoundTimeout("r1", 1)
	}()
	wg.Wait()

	if n := len(sink.forRound(1)); n != 1 {
		t.Fatalf("round 1 must resolve exactly once, got %d", n)
	}
}

func TestWaitingPhaseTimeoutClosesRoom(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"))
	pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")

	o.onRoundTimeout("r1", 0)

	if _, err := o.Sessions().Get("r1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("room should be torn down after waiting-phase timeout, got %v", err)
	}
	if !fp.sawText("closing because of inactivity") {
		t.Fatal("players should be told the room timed out")
	}
	if !fp.sawTextTo("a", "tok-r1-a-timeout") {
		t.Fatal("tokens should carry the timeout status")
	}
}

func TestLeaveAndRejoinCancelsGrace(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"))
	s := pairUp(t, o, "r1")

	o.HandleLeave(ctx, "r1", UserRef{ID: "a", Name: "Alice"})
	if !s.Timers.LeavePending("a") {
		t.Fatal("leave should arm the grace timer")
	}
	if !fp.sawTextTo("b", "your partner may rejoin") {
		t.Fatal("the partner should be told to wait")
	}

	o.HandleJoin(ctx, "r1", UserRef{ID: "a", Name: "Alice"})
	if s.Timers.LeavePending("a") {
		t.Fatal("rejoin should cancel the grace timer")
	}
	if _, err := o.Sessions().Get("r1"); err != nil {
		t.Fatalf("session should survive a rejoin, got %v", err)
	}
}

func TestLeaveGraceExpiryClosesRoom(t *testing.T) {
	ctx := context.Background()
	fp := newFakePlatform()
	cfg := Config{
		Mode:         ModeGrid,
		TaskID:       "task1",
		RoundCount:   1,
		RoundTimeout: time.Minute,
		LeaveGrace:   15 * time.Millisecond,
	}
	o := NewOrchestrator(cfg, fp, fixedItems{gridItem("first")}, zerolog.Nop())
	o.SetTokenIssuer(fakeTokens{})
	pairUp(t, o, "r1")

	o.HandleLeave(ctx, "r1", UserRef{ID: "a", Name: "Alice"})

	deadline := time.After(time.Second)
	for {
		if _, err := o.Sessions().Get("r1"); errors.Is(err, ErrSessionNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("room should close after the grace period expires")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !fp.sawTextTo("b", "tok-r1-b-user_left") {
		t.Fatal("tokens should carry the user_left status")
	}
}

func TestRejoinReplaysStateWithoutMutation(t *testing.T) {
	ctx := context.Background()
	o, fp, _ := newGridOrchestrator(t, gridItem("first"), gridItem("second"))
	s := pairUp(t, o, "r1")
	o.HandleReady(ctx, "r1", "a", "yes")
	o.HandleReady(ctx, "r1", "b", "yes")
	g := s.Guesser()

	round, remaining, holder := s.Round, s.Queue.Remaining(), s.TurnHolder
	before := len(fp.messages())

	o.HandleJoin(ctx, "r1", UserRef{ID: g.ID, Name: g.Name})

	if s.Round != round || s.Queue.Remaining() != remaining || s.TurnHolder != holder {
		t.Fatal("a rejoin replay must not mutate session state")
	}
	if len(fp.messages()) <= before {
		t.Fatal("the rejoining player should have state re-sent")
	}
}

func TestFullWordSessionWithFeedback(t *testing.T) {
	ctx := context.Background()
	o, fp, sink := newWordOrchestrator(t, ModeWordFeedback,
		GameItem{TargetWord: "apple"}, GameItem{TargetWord: "crane"})
	o.HandleRoomCreated(ctx, "w1", "task1", []UserRef{{ID: "u", Name: "Uma"}})
	s, err := o.Sessions().Get("w1")
	if err != nil {
		t.Fatalf("session should exist: %v", err)
	}

	o.HandleReady(ctx, "w1", "u", "yes")
	if s.Phase != PhaseInRound || s.Round != 1 {
		t.Fatalf("solo ready should start round 1, got phase %s round %d", s.Phase, s.Round)
	}

	// invalid guess: reported, round continues, no guess consumed
	o.HandleMessage(ctx, "w1", UserRef{ID: "u"}, "two words")
	if s.GuessesUsed != 0 || s.Round != 1 {
		t.Fatal("an invalid guess must not consume a guess or resolve the round")
	}
	if !fp.sawTextTo("u", "single 5-letter word") {
		t.Fatal("the offending player should be told the guess shape")
	}

	// one wrong guess, then the correct word on attempt two
	o.HandleMessage(ctx, "w1", UserRef{ID: "u"}, "zebra")
	if s.GuessesUsed != 1 {
		t.Fatalf("wrong guess should be consumed, used = %d", s.GuessesUsed)
	}
	if !fp.sawText("<absent>") {
		t.Fatal("feedback mode should broadcast letter feedback")
	}
	o.HandleMessage(ctx, "w1", UserRef{ID: "u"}, "Apple")
	if s.Round != 2 {
		t.Fatalf("correct guess should advance to round 2, got %d", s.Round)
	}
	if s.Score != testPoints[5] {
		t.Fatalf("expected %d points for 5 guesses remaining, got %d", testPoints[5], s.Score)
	}

	// round 2: first-try correct finishes the experiment
	o.HandleWordGuess(ctx, "w1", "u", "crane")
	if _, err := o.Sessions().Get("w1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session should be torn down after the last round, got %v", err)
	}
	if want := testPoints[5] + testPoints[6]; sink.recorded()[0].Points+sink.recorded()[1].Points != want {
		t.Fatalf("expected %d total points", want)
	}
	if !fp.sawTextTo("u", "tok-w1-u-success") {
		t.Fatal("the player should receive a completion token")
	}
}

func TestWordRoundLostAfterMaxGuesses(t *testing.T) {
	ctx := context.Background()
	o, fp, sink := newWordOrchestrator(t, ModeWordGuessOnly,
		GameItem{TargetWord: "apple"}, GameItem{TargetWord: "crane"})
	o.HandleRoomCreated(ctx, "w1", "task1", []UserRef{{ID: "u", Name: "Uma"}})
	s, _ := o.Sessions().Get("w1")
	o.HandleReady(ctx, "w1", "u", "yes")

	for i := 0; i < 6; i++ {
		o.HandleMessage(ctx, "w1", UserRef{ID: "u"}, "wrong")
	}
	if s.Round != 2 || s.Score != 0 {
		t.Fatalf("exhausted guesses should advance with no points, round %d score %d", s.Round, s.Score)
	}
	r1 := sink.forRound(1)
	if len(r1) != 1 || r1[0].Correct {
		t.Fatalf("round 1 should be one incorrect resolution, got %+v", r1)
	}
	if fp.sawText("<absent>") || fp.sawText("<exact>") {
		t.Fatal("guess-only mode must not leak letter feedback")
	}
}

func TestClueVersionSendsClue(t *testing.T) {
	ctx := context.Background()
	fp := newFakePlatform()
	cfg := Config{
		Mode:         ModeWordFeedback,
		TaskID:       "task1",
		RoundCount:   1,
		RoundTimeout: time.Minute,
		LeaveGrace:   time.Minute,
		MaxGuesses:   6,
		WordLength:   5,
		PointSystem:  testPoints,
		ClueEnabled:  true,
	}
	o := NewOrchestrator(cfg, fp, fixedItems{{TargetWord: "apple", Clue: "Fruit"}}, zerolog.Nop())
	o.HandleRoomCreated(ctx, "w1", "task1", []UserRef{{ID: "u", Name: "Uma"}})
	o.HandleReady(ctx, "w1", "u", "yes")

	if !fp.sawTextTo("u", "CLUE for the word: fruit") {
		t.Fatal("clue version should send the clue to the guesser")
	}
}
