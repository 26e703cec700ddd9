package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Rest is the client for the platform's HTTP API: room membership, user
// permissions and room layout. Chat messages travel over the socket instead.
type Rest struct {
	BaseURL string
	Token   string
	BotID   string
	http    *http.Client
}

func NewRest(baseURL, token, botID string) *Rest {
	return &Rest{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		BotID:   botID,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (r *Rest) do(ctx context.Context, method, path string, body any, ifMatch string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ifMatch != "" {
		req.Header.Set("If-Match", ifMatch)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return resp, nil
}

// call runs a request and discards the response body.
func (r *Rest) call(ctx context.Context, method, path string, body any, ifMatch string) error {
	resp, err := r.do(ctx, method, path, body, ifMatch)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// JoinRoom adds the bot user to a room.
func (r *Rest) JoinRoom(ctx context.Context, roomID string) error {
	return r.call(ctx, "POST", fmt.Sprintf("/users/%s/rooms/%s", r.BotID, roomID), nil, "")
}

// SetPermission toggles a user's right to send messages. The permission
// record is fetched first for its id and ETag, then patched; the user's
// input field is switched between active and read-only to match.
func (r *Rest) SetPermission(ctx context.Context, roomID, userID string, canSend bool) error {
	resp, err := r.do(ctx, "GET", fmt.Sprintf("/users/%s/permissions", userID), nil, "")
	if err != nil {
		return err
	}
	etag := resp.Header.Get("ETag")
	var perm struct {
		ID int `json:"id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&perm)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("decode permissions for user %s: %w", userID, err)
	}

	err = r.call(ctx, "PATCH", fmt.Sprintf("/permissions/%d", perm.ID),
		map[string]any{"send_message": canSend}, etag)
	if err != nil {
		return err
	}

	if canSend {
		return r.enableInput(ctx, roomID, userID)
	}
	return r.disableInput(ctx, roomID, userID)
}

func (r *Rest) enableInput(ctx context.Context, roomID, userID string) error {
	path := fmt.Sprintf("/rooms/%s/attribute/id/text", roomID)
	if err := r.call(ctx, "DELETE", path, map[string]any{
		"attribute": "readonly", "value": "placeholder", "receiver_id": userID,
	}, ""); err != nil {
		return err
	}
	return r.call(ctx, "PATCH", path, map[string]any{
		"attribute": "placeholder", "value": "Enter your message here!", "receiver_id": userID,
	}, "")
}

func (r *Rest) disableInput(ctx context.Context, roomID, userID string) error {
	path := fmt.Sprintf("/rooms/%s/attribute/id/text", roomID)
	if err := r.call(ctx, "PATCH", path, map[string]any{
		"attribute": "readonly", "value": "true", "receiver_id": userID,
	}, ""); err != nil {
		return err
	}
	return r.call(ctx, "PATCH", path, map[string]any{
		"attribute": "placeholder", "value": "Wait for a message from your partner", "receiver_id": userID,
	}, "")
}

// SetRoomReadOnly freezes the whole room's input field.
func (r *Rest) SetRoomReadOnly(ctx context.Context, roomID string) error {
	path := fmt.Sprintf("/rooms/%s/attribute/id/text", roomID)
	if err := r.call(ctx, "PATCH", path, map[string]any{
		"attribute": "readonly", "value": "True",
	}, ""); err != nil {
		return err
	}
	return r.call(ctx, "PATCH", path, map[string]any{
		"attribute": "placeholder", "value": "This room is read-only",
	}, "")
}

// RemoveUserFromRoom deletes a user's room membership, using the user
// record's ETag as the required If-Match precondition.
func (r *Rest) RemoveUserFromRoom(ctx context.Context, roomID, userID string) error {
	resp, err := r.do(ctx, "GET", "/users/"+userID, nil, "")
	if err != nil {
		return err
	}
	etag := resp.Header.Get("ETag")
	resp.Body.Close()
	return r.call(ctx, "DELETE", fmt.Sprintf("/users/%s/rooms/%s", userID, roomID), nil, etag)
}

// SetRoomTitle replaces the room's title line.
func (r *Rest) SetRoomTitle(ctx context.Context, roomID, title string) error {
	return r.call(ctx, "PATCH", fmt.Sprintf("/rooms/%s/text/title", roomID),
		map[string]any{"text": title}, "")
}

// MoveDivider resizes the chat and task panes; the widths must sum to 100.
func (r *Rest) MoveDivider(ctx context.Context, roomID string, chatArea, taskArea int) error {
	if chatArea+taskArea != 100 {
		return fmt.Errorf("chat and task area must sum to 100, got %d+%d", chatArea, taskArea)
	}
	if err := r.call(ctx, "PATCH", fmt.Sprintf("/rooms/%s/attribute/id/sidebar", roomID),
		map[string]any{"attribute": "style", "value": fmt.Sprintf("width: %d%%", taskArea)}, ""); err != nil {
		return err
	}
	return r.call(ctx, "PATCH", fmt.Sprintf("/rooms/%s/attribute/id/content", roomID),
		map[string]any{"attribute": "style", "value": fmt.Sprintf("width: %d%%", chatArea)}, "")
}
