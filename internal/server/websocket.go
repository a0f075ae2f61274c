package server

import (
	"net/http"
	"time"

	"nohate/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventStream pushes committed state changes to websocket clients so
// dashboards can refetch what changed.
type eventStream struct {
	console *biz.ConsoleUsecase
	log     *log.Helper
}

func newEventStream(console *biz.ConsoleUsecase, logger log.Logger) *eventStream {
	return &eventStream{console: console, log: log.NewHelper(logger)}
}

func (s *eventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// r.Context carries the server request timeout, so the stream is bound
	// to the connection instead.
	events, cancel := s.console.Subscribe()
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader only watches for the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("websocket: client closed connection")
				}
				return
			}
		}
	}()

	// An event without keys tells the client to resync everything.
	if err := s.write(conn, biz.StateEvent{At: time.Now().UnixMilli()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.write(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *eventStream) write(conn *websocket.Conn, ev biz.StateEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
