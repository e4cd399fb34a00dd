package ingress

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// TCPListener accepts client connections and spawns one goroutine per
// connection, mirroring the one-goroutine-per-unit-of-work style the
// teacher uses for its disruptor stages — generalized here to one
// goroutine per client rather than one per pipeline stage.
type TCPListener struct {
	ln            net.Listener
	registry      *registry.Registry
	dispatch      *Dispatcher
	framing       registry.Framing
	binaryDefault bool
}

// NewTCPListener binds addr and prepares to accept connections once Serve
// is called.
func NewTCPListener(addr string, reg *registry.Registry, dispatch *Dispatcher, framing registry.Framing, binaryDefault bool) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln, registry: reg, dispatch: dispatch, framing: framing, binaryDefault: binaryDefault}, nil
}

// Addr returns the listener's bound address.
func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until Close is called, handling each on its
// own goroutine. It always returns a non-nil error (net.ErrClosed once
// Close has been called).
func (l *TCPListener) Serve() error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

// Close stops accepting new connections. In-flight connection goroutines
// run until their peer disconnects or a read fails.
func (l *TCPListener) Close() error {
	return l.ln.Close()
}

func (l *TCPListener) handle(conn net.Conn) {
	defer conn.Close()

	client := l.registry.RegisterTCP(conn)
	defer l.registry.Remove(client.ID)

	log.Info().Uint32("client_id", uint32(client.ID)).Str("remote", conn.RemoteAddr().String()).Msg("tcp client connected")

	dec := NewDecoder(conn, l.framing, l.binaryDefault)
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Uint32("client_id", uint32(client.ID)).Msg("tcp client disconnected")
			} else {
				log.Warn().Uint32("client_id", uint32(client.ID)).Err(err).Msg("tcp client decode error, closing connection")
			}
			return
		}

		if client.Protocol == wire.ProtocolUnknown {
			l.registry.SetProtocol(client.ID, dec.Protocol(), l.framing)
		}

		if !l.dispatch.Dispatch(client.ID, msg, uint64(time.Now().UnixNano())) {
			log.Warn().Uint32("client_id", uint32(client.ID)).Msg("input queue full, dropping message")
		}
	}
}
