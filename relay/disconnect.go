package relay

import (
	"crypto/tls"
	"net"
	"sync/atomic"
	"syscall"
	"time"
)

// clientWatch reads from the client side of a stream so that a client going
// away is noticed while the upstream is quiet. fasthttp only reports a gone
// client on the next failed write.
//
// Stream clients send nothing once the request is in. Any bytes that do
// arrive are discarded, and the connection is closed when the stream ends
// instead of being reused.
type clientWatch struct {
	nc       net.Conn
	done     chan struct{}
	stopping atomic.Bool
	consumed atomic.Bool
}

// watchClient starts watching nc on behalf of conn. It returns nil when nc
// cannot report a peer close through Read.
func watchClient(nc net.Conn, conn *Connection) *clientWatch {
	if nc == nil || !watchable(nc) {
		return nil
	}
	if err := nc.SetReadDeadline(time.Time{}); err != nil {
		return nil
	}

	w := &clientWatch{nc: nc, done: make(chan struct{})}
	go w.run(conn)
	return w
}

func (w *clientWatch) run(conn *Connection) {
	defer close(w.done)

	buf := make([]byte, 1)
	for {
		n, err := w.nc.Read(buf)
		if n > 0 {
			w.consumed.Store(true)
		}
		if err == nil {
			continue
		}
		if !w.stopping.Load() {
			conn.Close()
		}
		return
	}
}

// stop ends the watch and hands the connection back to the server. It must
// run before the response body is closed.
func (w *clientWatch) stop() {
	if w == nil {
		return
	}
	w.stopping.Store(true)
	_ = w.nc.SetReadDeadline(time.Now())
	<-w.done

	if w.consumed.Load() {
		_ = w.nc.Close()
		return
	}
	_ = w.nc.SetReadDeadline(time.Time{})
}

// watchable reports whether nc is a real network connection. In-memory
// connections, such as the ones fiber's app.Test serves, answer Read with EOF
// as soon as the request is consumed.
func watchable(nc net.Conn) bool {
	switch c := nc.(type) {
	case *tls.Conn:
		return watchable(c.NetConn())
	case syscall.Conn:
		return true
	default:
		return false
	}
}
