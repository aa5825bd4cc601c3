package events

import (
	"context"
	"log"

	"github.com/mburgess/go-dms/internal/stats"
	"github.com/mburgess/go-dms/internal/types"
)

// Hub fans server events out to websocket clients, keyed by user id. A
// user may hold several connections (multiple tabs); every one of them
// gets each event.
type Hub struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[int]map[*Client]struct{}
	registerChan   chan *Client
	deregisterChan chan *Client
	notifyChan     chan *userEvent
	stop           chan struct{}
	done           chan struct{}
}

type userEvent struct {
	userId int
	msg    *ServerMessage
}

func NewHub(logger *log.Logger, statsProvider stats.StatsProvider) *Hub {
	return &Hub{
		log:            logger,
		stats:          statsProvider,
		clients:        make(map[int]map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		notifyChan:     make(chan *userEvent, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.registerChan:
			h.log.Printf("adding connection from %q", client.user.Username)
			h.addClient(client)
		case client := <-h.deregisterChan:
			h.log.Printf("removing connection from %q", client.user.Username)
			h.removeClient(client)
		case ev := <-h.notifyChan:
			for client := range h.clients[ev.userId] {
				client.queueMessage(ev.msg)
			}
		case <-h.stop:
			h.log.Println("closing client connections")
			for _, conns := range h.clients {
				for client := range conns {
					client.stopClient()
				}
			}

			close(h.done)
			return
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.registerChan <- c
}

func (h *Hub) Deregister(c *Client) {
	h.deregisterChan <- c
}

// NotifyMessage queues a new-message event for the receiver. Delivery
// is best effort: when the hub is saturated the event is dropped rather
// than blocking the sender's request.
func (h *Hub) NotifyMessage(userId int, msg types.Message, unreadCount int) {
	ev := &userEvent{
		userId: userId,
		msg:    NewMessageEvent(msg, unreadCount),
	}

	select {
	case h.notifyChan <- ev:
	case <-h.stop:
	default:
		h.log.Printf("notify channel full, dropping event for user %d", userId)
	}
}

func (h *Hub) addClient(c *Client) {
	conns, ok := h.clients[c.user.Id]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.user.Id] = conns
	}
	conns[c] = struct{}{}

	if h.stats != nil {
		h.stats.Incr(stats.ConnectedClients)
	}
}

func (h *Hub) removeClient(c *Client) {
	conns, ok := h.clients[c.user.Id]
	if !ok {
		return
	}

	if _, ok := conns[c]; !ok {
		return
	}

	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.user.Id)
	}

	if h.stats != nil {
		h.stats.Decr(stats.ConnectedClients)
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	close(h.stop)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
