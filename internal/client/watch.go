package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"learncards/internal/models"

	"github.com/gorilla/websocket"
)

// WatchTask follows the task over the websocket endpoint and returns the last
// snapshot once the server closes the stream.
func (c *Client) WatchTask(ctx context.Context, id string, onUpdate func(models.Task)) (models.Task, error) {
	u, err := c.watchURL(id)
	if err != nil {
		return models.Task{}, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return models.Task{}, fmt.Errorf("dial failed: %w, status: %s", err, resp.Status)
		}
		return models.Task{}, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var last models.Task
	for {
		var t models.Task
		if err := conn.ReadJSON(&t); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure && last.Status.Terminal() {
				return last, nil
			}
			return last, fmt.Errorf("watch task %s: %w", id, err)
		}
		last = t
		if onUpdate != nil {
			onUpdate(t)
		}
	}
}

func (c *Client) watchURL(id string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/task/" + url.PathEscape(id) + "/watch"
	return u.String(), nil
}
