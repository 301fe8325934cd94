package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
)

const maxClientMessage = 512

// Room is the set of clients following one world instance. It holds a single
// bus subscription while it has members.
type Room struct {
	instance models.InstanceID
	clients  map[*client]struct{}
	sub      bus.Subscription
	mu       sync.Mutex
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.config.AllowedOrigins) == 0 {
				return true
			}
			return slices.Contains(s.config.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	instance, err := parseInstance(r.URL.Query().Get("instance"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.indexes.Index(r.Context(), instance); err != nil {
		s.writeError(w, err)
		return
	}
	if s.config.MaxClients > 0 && int(s.clientCount.Load()) >= s.config.MaxClients {
		s.logger.Warn("Maximum clients reached, rejecting connection", log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, s.config.ClientBuffer)}
	room, err := s.join(instance, c)
	if err != nil {
		s.logger.Error("Failed to join room", log.Uint64("instance", uint64(instance)), log.Error(err))
		_ = conn.Close()
		return
	}
	s.clientCount.Add(1)

	clientLogger := s.logger.With(log.String("client_id", c.id), log.Uint64("instance", uint64(instance)))
	clientLogger.Info("Client connected", log.String("remote_addr", r.RemoteAddr))

	go s.writePump(c)
	s.readPump(c)

	room.remove(c)
	s.leave(room)
	s.clientCount.Add(-1)
	clientLogger.Info("Client disconnected")
}

// readPump discards client input and returns once the connection is gone.
func (s *Server) readPump(c *client) {
	c.conn.SetReadLimit(maxClientMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.config.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.config.PingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) join(instance models.InstanceID, c *client) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[instance]
	if !ok {
		room = &Room{instance: instance, clients: make(map[*client]struct{})}
		sub, err := s.bus.SubscribeTopic(events.InstanceTopic(instance), bus.Wildcard, s.broadcaster(room))
		if err != nil {
			return nil, err
		}
		room.sub = sub
		s.rooms[instance] = room
	}

	room.mu.Lock()
	room.clients[c] = struct{}{}
	room.mu.Unlock()
	return room, nil
}

// leave drops the room once its last client is gone.
func (s *Server) leave(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room.mu.Lock()
	empty := len(room.clients) == 0
	room.mu.Unlock()
	if !empty || s.rooms[room.instance] != room {
		return
	}
	_ = room.sub.Cancel()
	delete(s.rooms, room.instance)
}

func (s *Server) closeRooms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, room := range s.rooms {
		_ = room.sub.Cancel()
		room.mu.Lock()
		for c := range room.clients {
			delete(room.clients, c)
			close(c.send)
		}
		room.mu.Unlock()
		delete(s.rooms, id)
	}
}

// remove takes c out of the room and ends its writer. Safe to repeat.
func (r *Room) remove(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
}

func (s *Server) broadcaster(room *Room) bus.EventHandler {
	return func(event bus.Event) error {
		data, err := json.Marshal(events.Wrap(event))
		if err != nil {
			return err
		}
		room.mu.Lock()
		defer room.mu.Unlock()
		for c := range room.clients {
			select {
			case c.send <- data:
			default:
				s.logger.Warn("Dropping slow client",
					log.String("client_id", c.id),
					log.Uint64("instance", uint64(room.instance)))
				delete(room.clients, c)
				close(c.send)
			}
		}
		return nil
	}
}
