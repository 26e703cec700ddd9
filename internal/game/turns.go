package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

var ErrRoleAssignment = errors.New("role assignment requires exactly two players")

// TurnController assigns player roles at session start and gates the
// write privilege for the current turn.
type TurnController struct {
	api Platform
}

func NewTurnController(api Platform) *TurnController {
	return &TurnController{api: api}
}

// AssignRoles splits exactly two players into explainer and guesser,
// chosen uniformly at random. Roles are assigned once per session.
func (tc *TurnController) AssignRoles(players []*Player) error {
	if len(players) != 2 {
		return fmt.Errorf("%w: got %d", ErrRoleAssignment, len(players))
	}
	ex := rand.Intn(2)
	players[ex].Role = RoleExplainer
	players[1-ex].Role = RoleGuesser
	return nil
}

// AssignSolo marks the only player of a solo room as the guesser.
func (tc *TurnController) AssignSolo(players []*Player) error {
	if len(players) != 1 {
		return fmt.Errorf("solo role assignment requires exactly one player: got %d", len(players))
	}
	players[0].Role = RoleGuesser
	return nil
}

// GrantTurn gives playerID the write privilege and revokes everyone else's,
// in that strict revoke-then-grant order so no window exists where both
// players can write. The holder is recorded on the session so the turn can
// be replayed after a reconnect rather than recomputed.
func (tc *TurnController) GrantTurn(ctx context.Context, s *Session, playerID string) error {
	for _, p := range s.Players {
		if p.ID == playerID {
			continue
		}
		if err := tc.api.SetPermission(ctx, s.RoomID, p.ID, false); err != nil {
			return fmt.Errorf("revoke turn from %s: %w", p.ID, err)
		}
	}
	if err := tc.api.SetPermission(ctx, s.RoomID, playerID, true); err != nil {
		return fmt.Errorf("grant turn to %s: %w", playerID, err)
	}
	s.TurnHolder = playerID
	return nil
}
