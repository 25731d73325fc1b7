package realtime

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrUpstreamClosed is returned by Run when the broker subscription ends.
var ErrUpstreamClosed = errors.New("realtime: upstream subscription closed")

// Hub serves websocket subscribers. It holds one subscription on the broker
// and fans every event out to its connected sockets.
type Hub struct {
	broker   Broker
	fanout   *LocalBroker
	upgrader websocket.Upgrader
	ready    chan struct{}
}

// NewHub creates a hub fed by broker.
func NewHub(broker Broker) *Hub {
	return &Hub{
		broker: broker,
		fanout: NewLocalBroker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		ready: make(chan struct{}),
	}
}

// Ready is closed once Run holds its broker subscription.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	return h.fanout.Count()
}

// Run forwards broker events to sockets until ctx ends or the broker
// subscription is lost.
func (h *Hub) Run(ctx context.Context) error {
	sub, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()
	close(h.ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return ErrUpstreamClosed
			}
			_ = h.fanout.Publish(ctx, ev)
		}
	}
}

// ServeHTTP upgrades the request and streams events until either side goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.fanout.Subscribe(r.Context())
	if err != nil {
		return
	}
	defer sub.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Ack{Status: StatusSubscribed}); err != nil {
		return
	}

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains the socket so control frames are processed. Subscribers
// never send data we act on.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read: %v", err)
			}
			return
		}
	}
}
