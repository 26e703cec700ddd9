package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type permCall struct {
	roomID  string
	userID  string
	canSend bool
}

type sentMsg struct {
	roomID string
	text   string
	opts   *SendOpts
}

// fakePlatform records every outbound call for assertions.
type fakePlatform struct {
	mu       sync.Mutex
	perms    []permCall
	msgs     []sentMsg
	readOnly []string
	removed  []string
	titles   []string
	joined   []string
}

func newFakePlatform() *fakePlatform { return &fakePlatform{} }

func (f *fakePlatform) JoinRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, roomID)
	return nil
}

func (f *fakePlatform) SendText(_ context.Context, roomID, text string, opts *SendOpts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sentMsg{roomID: roomID, text: text, opts: opts})
	return nil
}

func (f *fakePlatform) SetPermission(_ context.Context, roomID, userID string, canSend bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms = append(f.perms, permCall{roomID: roomID, userID: userID, canSend: canSend})
	return nil
}

func (f *fakePlatform) SetRoomReadOnly(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readOnly = append(f.readOnly, roomID)
	return nil
}

func (f *fakePlatform) RemoveUserFromRoom(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakePlatform) SetRoomTitle(_ context.Context, roomID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakePlatform) permissionCalls() []permCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]permCall, len(f.perms))
	copy(out, f.perms)
	return out
}

func (f *fakePlatform) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakePlatform) sawText(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

func (f *fakePlatform) sawTextTo(userID, substr string) bool {
	for _, m := range f.messages() {
		if m.opts != nil && m.opts.ReceiverID == userID && strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

func (f *fakePlatform) readOnlyRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.readOnly))
	copy(out, f.readOnly)
	return out
}

func (f *fakePlatform) lastTitle() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.titles) == 0 {
		return ""
	}
	return f.titles[len(f.titles)-1]
}

// fixedItems serves a canned item list.
type fixedItems []GameItem

func (f fixedItems) Load(n int) ([]GameItem, error) {
	if n <= 0 || n > len(f) {
		n = len(f)
	}
	return f[:n], nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(roomID, userID, status string) (string, error) {
	return fmt.Sprintf("tok-%s-%s-%s", roomID, userID, status), nil
}

// fakeSink counts resolutions per room+round.
type fakeSink struct {
	mu      sync.Mutex
	results []RoundResult
}

func (f *fakeSink) RecordRound(_ context.Context, r RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeSink) recorded() []RoundResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RoundResult, len(f.results))
	copy(out, f.results)
	return out
}

func (f *fakeSink) forRound(round int) []RoundResult {
	var out []RoundResult
	for _, r := range f.recorded() {
		if r.Round == round {
			out = append(out, r)
		}
	}
	return out
}
