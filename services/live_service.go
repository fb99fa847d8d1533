// LiveHub fans the approved listing out to websocket clients.
// register chan - a connecting client is handed to Run() which adds it to the map and sends it the latest snapshot,
// unregister - the opposite, and the last one out stops the store subscription,
// updates - the watcher goroutine puts every snapshot here, Run() broadcasts it.
package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"guestbookAPI/internal/guestbook"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Viewers never send payloads, only control frames.
	maxMessageSize = 512

	clientSendBuffer = 8
)

// LiveSource is the store's approved-entries listener.
type LiveSource interface {
	WatchApproved(ctx context.Context, limit int, onSnapshot func([]guestbook.Entry)) error
}

type watchUpdate struct {
	gen  uint64
	data []byte
}

type watchResult struct {
	gen uint64
	err error
}

type LiveHub struct {
	source LiveSource
	limit  int
	log    *slog.Logger

	clients    map[*LiveClient]bool
	register   chan *LiveClient
	unregister chan *LiveClient
	updates    chan watchUpdate
	watchDone  chan watchResult
	stop       chan struct{}
	done       chan struct{}

	// Owned by Run.
	gen         uint64
	cancelWatch context.CancelFunc
	latest      []byte
	// failure is the error message of a subscription that ended while viewers
	// were connected. It is cleared when the last viewer leaves.
	failure []byte

	connected atomic.Int64
}

func NewLiveHub(source LiveSource, limit int, log *slog.Logger) *LiveHub {
	if limit <= 0 {
		limit = guestbook.DefaultListingLimit
	}
	return &LiveHub{
		source:     source,
		limit:      limit,
		log:        log,
		clients:    make(map[*LiveClient]bool),
		register:   make(chan *LiveClient),
		unregister: make(chan *LiveClient),
		updates:    make(chan watchUpdate),
		watchDone:  make(chan watchResult),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register hands a client to the hub. It is a no-op once the hub is closed.
func (h *LiveHub) Register(c *LiveClient) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

func (h *LiveHub) Unregister(c *LiveClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients is the number of connected viewers.
func (h *LiveHub) Clients() int { return int(h.connected.Load()) }

// Close stops the subscription, disconnects every client and waits for Run to exit.
func (h *LiveHub) Close() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.done
}

func (h *LiveHub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.log.Info("LiveHub: viewer connected", "count", len(h.clients))
			switch {
			case h.failure != nil:
				h.send(client, h.failure)
			case h.cancelWatch == nil:
				h.startWatch()
			}
			if h.latest != nil {
				h.send(client, h.latest)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Info("LiveHub: viewer disconnected", "count", len(h.clients))
			}

		case u := <-h.updates:
			if u.gen != h.gen {
				continue
			}
			h.latest = u.data
			for client := range h.clients {
				h.send(client, u.data)
			}

		case res := <-h.watchDone:
			if res.gen != h.gen {
				continue
			}
			h.cancelWatch = nil
			if res.err == nil {
				continue
			}
			// No resubscribe while anyone who saw the error is still connected.
			h.log.Error("LiveHub: approved listing subscription failed", "error", res.err)
			h.failure = encodeLive(guestbook.LiveMessage{
				Action:  guestbook.LiveActionError,
				Code:    guestbook.Code(res.err),
				Message: guestbook.Hint(res.err),
			})
			h.latest = nil
			for client := range h.clients {
				h.send(client, h.failure)
			}

		case <-h.stop:
			h.stopWatch()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.connected.Store(0)
			return
		}
	}
}

// send never blocks Run; a client that cannot keep up is dropped.
func (h *LiveHub) send(client *LiveClient, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.log.Warn("LiveHub: viewer too slow, disconnecting")
		h.drop(client)
	}
}

func (h *LiveHub) drop(client *LiveClient) {
	delete(h.clients, client)
	close(client.Send)
	h.connected.Store(int64(len(h.clients)))
	if len(h.clients) == 0 {
		h.stopWatch()
		h.failure = nil
	}
}

func (h *LiveHub) startWatch() {
	h.gen++
	gen := h.gen
	ctx, cancel := context.WithCancel(context.Background())
	h.cancelWatch = cancel

	go func() {
		err := h.source.WatchApproved(ctx, h.limit, func(entries []guestbook.Entry) {
			data := encodeLive(guestbook.LiveMessage{
				Action:  guestbook.LiveActionSnapshot,
				Entries: guestbook.PublicView(entries),
			})
			select {
			case h.updates <- watchUpdate{gen: gen, data: data}:
			case <-ctx.Done():
			}
		})
		cancel()
		select {
		case h.watchDone <- watchResult{gen: gen, err: err}:
		case <-h.done:
		}
	}()
}

func (h *LiveHub) stopWatch() {
	if h.cancelWatch == nil {
		return
	}
	h.cancelWatch()
	h.cancelWatch = nil
	// Anything still in flight from the old subscription is stale.
	h.gen++
	h.latest = nil
}

func encodeLive(msg guestbook.LiveMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

// LiveClient sits between one websocket connection and the hub.
type LiveClient struct {
	Hub  *LiveHub
	Conn *websocket.Conn
	Send chan []byte
}

func NewLiveClient(hub *LiveHub, conn *websocket.Conn) *LiveClient {
	return &LiveClient{Hub: hub, Conn: conn, Send: make(chan []byte, clientSendBuffer)}
}

// ReadPump only watches for the peer going away; incoming payloads are ignored.
func (c *LiveClient) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debug("LiveHub: read error", "error", err)
			}
			return
		}
	}
}

// WritePump handles messages going to the viewer.
func (c *LiveClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
