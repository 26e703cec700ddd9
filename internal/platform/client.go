package platform

import (
	"context"
	"fmt"

	"github.com/averdin/gamebots/internal/game"
)

// Client bundles the two halves of the platform connection into the single
// surface the game engine talks to: chat messages go over the socket,
// everything else over REST.
type Client struct {
	rest *Rest
	sock *Socket
}

var _ game.Platform = (*Client)(nil)

func NewClient(rest *Rest) *Client {
	return &Client{rest: rest}
}

// AttachSocket hands the client its event connection. Called once during
// startup, before any events flow.
func (c *Client) AttachSocket(s *Socket) { c.sock = s }

func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	return c.rest.JoinRoom(ctx, roomID)
}

// SendText emits a chat message. A receiver makes it private; a color wraps
// it in the platform's HTML color markup.
func (c *Client) SendText(ctx context.Context, roomID, text string, opts *game.SendOpts) error {
	if c.sock == nil {
		return fmt.Errorf("no socket attached")
	}
	payload := map[string]any{"message": text, "room": roomID}
	if opts != nil {
		if opts.ReceiverID != "" {
			payload["receiver_id"] = opts.ReceiverID
		}
		if opts.Color != "" {
			payload["message"] = fmt.Sprintf(`<a style="color:%s;">%s</a>`, opts.Color, text)
			payload["html"] = true
		}
	}
	return c.sock.Emit("text", payload)
}

func (c *Client) SetPermission(ctx context.Context, roomID, userID string, canSend bool) error {
	return c.rest.SetPermission(ctx, roomID, userID, canSend)
}

func (c *Client) SetRoomReadOnly(ctx context.Context, roomID string) error {
	return c.rest.SetRoomReadOnly(ctx, roomID)
}

func (c *Client) RemoveUserFromRoom(ctx context.Context, roomID, userID string) error {
	return c.rest.RemoveUserFromRoom(ctx, roomID, userID)
}

func (c *Client) SetRoomTitle(ctx context.Context, roomID, title string) error {
	return c.rest.SetRoomTitle(ctx, roomID, title)
}

// MoveDivider passes through to the REST layout call.
func (c *Client) MoveDivider(ctx context.Context, roomID string, chatArea, taskArea int) error {
	return c.rest.MoveDivider(ctx, roomID, chatArea, taskArea)
}
