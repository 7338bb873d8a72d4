package broadcast

import (
	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConn is re-exported so callers need only import pkg/broadcast to
// both accept and fan out over sockets.
type WSConn = instance.WSConn

// GorillaConn adapts a *websocket.Conn (github.com/gorilla/websocket)
// to instance.WSConn, the production wiring for accepting a socket.
type GorillaConn struct {
	Conn *websocket.Conn
}

func (g GorillaConn) WriteMessage(messageType int, data []byte) error {
	return g.Conn.WriteMessage(messageType, data)
}

// Fanout broadcasts messages to every WebSocket an instance has
// accepted, optionally filtered by tag.
type Fanout struct {
	sockets *instance.Sockets
	logger  zerolog.Logger
}

// NewFanout wraps sockets for tag-filtered broadcast.
func NewFanout(sockets *instance.Sockets) *Fanout {
	return &Fanout{sockets: sockets, logger: corelog.WithComponent("broadcast")}
}

// Send writes data as a text message to every connection registered
// under tag (or every connection, when tag is empty). It returns the
// number of connections written to successfully; write failures are
// logged and skipped rather than aborting the whole fan-out.
func (f *Fanout) Send(tag string, data []byte) int {
	conns := f.sockets.Get(tag)
	sent := 0
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			f.logger.Warn().Err(err).Str("tag", tag).Msg("websocket fanout write failed")
			continue
		}
		sent++
	}
	metrics.BroadcastWSSentTotal.Add(float64(sent))
	return sent
}

// SendJSON marshals v and fans it out the same way Send does.
func (f *Fanout) SendJSON(tag string, v any, marshal func(any) ([]byte, error)) (int, error) {
	data, err := marshal(v)
	if err != nil {
		return 0, err
	}
	return f.Send(tag, data), nil
}
