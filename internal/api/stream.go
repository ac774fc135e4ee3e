package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const ssePrefix = "data:"

// StreamMessages opens the live event stream for one room. The
// returned channel carries each message as it is published and is
// closed when the stream ends, whether by ctx cancellation or by the
// server closing the connection. Connection and authorization failures
// are reported synchronously.
func (c *Client) StreamMessages(ctx context.Context, token, roomID string) (<-chan Message, error) {
	path := "/messages/events/" + url.PathEscape(roomID)
	body, err := c.openStream(ctx, path, token)
	if err != nil {
		return nil, err
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			payload, ok := strings.CutPrefix(scanner.Text(), ssePrefix)
			if !ok || strings.TrimSpace(payload) == "" {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &msg); err != nil {
				// Unparseable frames are dropped; the stream itself
				// is still healthy.
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// StreamRoomStates opens the unread-state trigger stream for a set of
// rooms. Each receive means "states changed, re-fetch them"; the frames
// carry no payload. The channel closes when the stream ends.
func (c *Client) StreamRoomStates(ctx context.Context, token string, roomIDs []string) (<-chan struct{}, error) {
	path := "/rooms/states/events?room_ids=" + url.QueryEscape(strings.Join(roomIDs, ","))
	body, err := c.openStream(ctx, path, token)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{})
	go func() {
		defer close(out)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			if !strings.HasPrefix(scanner.Text(), ssePrefix) {
				continue
			}
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) openStream(ctx context.Context, path, token string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &Error{Kind: KindOther, Msg: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.signalUnauthorized()
		return nil, &Error{Kind: KindUnauthorized}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &Error{Kind: KindOther, Msg: resp.Status}
	}
	return resp.Body, nil
}
