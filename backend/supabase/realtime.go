package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lumi/backend"
	"lumi/domain"
	"lumi/domain/entity"
)

const (
	heartbeatInterval = 25 * time.Second
	readWait          = 60 * time.Second
	writeWait         = 10 * time.Second
)

// feedMessage is the phoenix-flavoured frame carried on the change-feed
// socket. Row change frames use the event names INSERT, UPDATE, DELETE.
type feedMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// feedSubscription is one live change-feed connection. Each subscription
// owns its socket; closing it leaves the channel and tears the socket down.
type feedSubscription struct {
	topic  string
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// writeJSON serializes frame writes. The connection allows at most one
// concurrent writer, and the heartbeat ticker and Close both send frames.
func (s *feedSubscription) writeJSON(msg feedMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

// Subscribe opens a change-feed subscription for rows in table owned by
// userID and invokes handler for every insert/update/delete until the
// subscription is closed or ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, table, userID string, handler func(entity.ChangeEvent)) (backend.Subscription, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/realtime/v1/websocket?apikey=" + c.anonKey

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		kind := domain.Classify(status, "", err.Error())
		return nil, domain.NewError(kind, status, "change feed connect failed", err)
	}

	topic := fmt.Sprintf("realtime:public:%s:user_id=eq.%s", table, userID)
	sub := &feedSubscription{
		topic:  topic,
		conn:   conn,
		logger: c.logger.Named("realtime"),
		done:   make(chan struct{}),
	}

	if err := sub.writeJSON(feedMessage{Topic: topic, Event: "phx_join", Payload: json.RawMessage(`{}`), Ref: "1"}); err != nil {
		conn.Close()
		return nil, domain.NewError(domain.KindNetwork, 0, "change feed join failed", err)
	}

	go sub.readPump(handler)
	go sub.heartbeat()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (s *feedSubscription) readPump(handler func(entity.ChangeEvent)) {
	defer func() {
		s.Close()
	}()

	s.conn.SetReadLimit(1 << 20)
	s.conn.SetReadDeadline(time.Now().Add(readWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		var msg feedMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("change feed closed unexpectedly", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readWait))

		switch msg.Event {
		case string(entity.EventInsert), string(entity.EventUpdate), string(entity.EventDelete):
			if msg.Topic != s.topic {
				continue
			}
			var ev entity.ChangeEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				s.logger.Warn("malformed change event", zap.Error(err))
				continue
			}
			ev.Kind = entity.EventKind(msg.Event)
			handler(ev)

		case "phx_reply", "phx_close":
			// join/leave acknowledgements
		}
	}
}

func (s *feedSubscription) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ref := 2
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			hb := feedMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: fmt.Sprint(ref)}
			if err := s.writeJSON(hb); err != nil {
				s.Close()
				return
			}
			ref++
		}
	}
}

// Close leaves the topic and tears down the socket. Safe to call more than
// once.
func (s *feedSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.writeJSON(feedMessage{Topic: s.topic, Event: "phx_leave", Payload: json.RawMessage(`{}`)})
		_ = s.conn.Close()
	})
	return nil
}
