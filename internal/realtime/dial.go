package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const ackTimeout = 10 * time.Second

// Dialer subscribes to a sheetd realtime endpoint over a websocket.
type Dialer struct {
	URL   string
	Token string
}

// Subscribe dials the endpoint and waits for the subscription ack.
func (d Dialer) Subscribe(ctx context.Context) (*Subscription, error) {
	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))
	var ack Ack
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read subscription ack: %w", err)
	}
	if ack.Status != StatusSubscribed {
		conn.Close()
		return nil, fmt.Errorf("unexpected subscription status %q", ack.Status)
	}
	_ = conn.SetReadDeadline(time.Time{})

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("realtime: drop malformed frame: %v", err)
				continue
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}()

	return newSubscription(out, func() {
		close(done)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}), nil
}
