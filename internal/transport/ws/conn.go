package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	readWait  = 60 * time.Second
)

// outbox is the write side of one websocket connection. Send never blocks: callers include
// the runtime goroutine, which must not wait on a slow peer.
type outbox struct {
	mu     sync.Mutex
	out    chan []byte
	closed bool
}

func newOutbox(n int) *outbox {
	return &outbox{out: make(chan []byte, n)}
}

func (o *outbox) Send(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.out <- b:
		return true
	default:
		return false
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.out)
	}
	o.mu.Unlock()
}

// pump writes queued messages until ctx ends or the outbox is closed.
func pump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, o *outbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-o.out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
