package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/motionbridge/internal/api/ws"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/tracing"
)

// Watch streams flush events from the server to fn until ctx is cancelled,
// the connection drops or fn returns an error. Without html, flush messages
// carry only the operations.
func (c *Client) Watch(ctx context.Context, html bool, fn func(ws.Message) error) error {
	u, err := url.Parse(c.BaseURL())
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if !html {
		u.RawQuery = "html=false"
	}

	header := http.Header{}
	header.Set("User-Agent", userAgent)
	tracing.Inject(ctx, header)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var msg ws.Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
