package game

import (
	"sync"
	"time"
)

// RoomTimers bundles the two timer roles a room needs: the single round /
// inactivity timer, and one leave-grace timer per absent player.
//
// The round timer carries a generation counter. Arming bumps the generation
// and a pending fire only runs if its generation is still current, so a
// cancel or re-arm that races an in-flight fire wins: at most one logical
// timer instance is live at any moment, and a fired instance can never be
// re-armed by accident.
type RoomTimers struct {
	mu sync.Mutex

	round    *time.Timer
	roundGen uint64
	armed    bool
	fire     func()
	duration time.Duration

	leave    map[string]*time.Timer
	leaveGen map[string]uint64

	closed bool
}

func NewRoomTimers() *RoomTimers {
	return &RoomTimers{
		leave:    make(map[string]*time.Timer),
		leaveGen: make(map[string]uint64),
	}
}

// ArmRound schedules fire to run after d. Any previously armed round timer
// is cancelled first.
func (rt *RoomTimers) ArmRound(d time.Duration, fire func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	if rt.round != nil {
		rt.round.Stop()
	}
	rt.roundGen++
	gen := rt.roundGen
	rt.armed = true
	rt.fire = fire
	rt.duration = d
	rt.round = time.AfterFunc(d, func() { rt.fireRound(gen) })
}

func (rt *RoomTimers) fireRound(gen uint64) {
	rt.mu.Lock()
	if rt.closed || gen != rt.roundGen {
		rt.mu.Unlock()
		return
	}
	rt.roundGen++ // fire-once: this instance is spent
	rt.armed = false
	fire := rt.fire
	rt.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// ResetRound re-arms the round timer with the same callback and duration.
// Used on every qualifying user activity to turn the fixed deadline into an
// inactivity timeout. No-op before the first ArmRound.
func (rt *RoomTimers) ResetRound() {
	rt.mu.Lock()
	d, fire := rt.duration, rt.fire
	rt.mu.Unlock()
	if fire == nil {
		return
	}
	rt.ArmRound(d, fire)
}

// CancelRound stops the round timer. Safe to call when the timer has
// already fired or was never armed.
func (rt *RoomTimers) CancelRound() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.round != nil {
		rt.round.Stop()
		rt.round = nil
	}
	rt.roundGen++
	rt.armed = false
	rt.fire = nil
}

// RoundArmed reports whether a round timer is currently scheduled.
func (rt *RoomTimers) RoundArmed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.armed
}

// UserLeft arms the leave-grace timer for userID. A second leave before the
// first grace period ran out replaces the pending timer.
func (rt *RoomTimers) UserLeft(userID string, d time.Duration, fire func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	if t := rt.leave[userID]; t != nil {
		t.Stop()
	}
	rt.leaveGen[userID]++
	gen := rt.leaveGen[userID]
	rt.leave[userID] = time.AfterFunc(d, func() { rt.fireLeave(userID, gen, fire) })
}

func (rt *RoomTimers) fireLeave(userID string, gen uint64, fire func()) {
	rt.mu.Lock()
	if rt.closed || rt.leaveGen[userID] != gen {
		rt.mu.Unlock()
		return
	}
	delete(rt.leave, userID)
	rt.mu.Unlock()
	fire()
}

// UserJoined cancels the leave-grace timer for userID. Joining without a
// pending timer is a no-op.
func (rt *RoomTimers) UserJoined(userID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if t := rt.leave[userID]; t != nil {
		t.Stop()
		delete(rt.leave, userID)
	}
	rt.leaveGen[userID]++
}

// LeavePending reports whether userID has a leave-grace timer running.
func (rt *RoomTimers) LeavePending(userID string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.leave[userID] != nil
}

// CancelAll stops the round timer and every outstanding leave timer.
// Called once on room teardown; the timers cannot be armed again afterwards.
func (rt *RoomTimers) CancelAll() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	rt.closed = true
	rt.roundGen++
	rt.armed = false
	if rt.round != nil {
		rt.round.Stop()
		rt.round = nil
	}
	for id, t := range rt.leave {
		t.Stop()
		delete(rt.leave, id)
	}
}
