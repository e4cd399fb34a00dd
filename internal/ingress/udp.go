package ingress

import (
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// udpRecvBufferSize bounds one datagram; large enough for several binary
// NewOrder messages back to back, the largest input kind the protocol
// allows to be packed into a single packet.
const udpRecvBufferSize = 8192

// UDPReceiver reads client datagrams off a single shared socket. Unlike
// TCP, there is no per-client goroutine: one datagram may carry multiple
// messages, and clients are distinguished purely by source address via the
// registry's UDP LRU table.
type UDPReceiver struct {
	conn          *net.UDPConn
	registry      *registry.Registry
	lru           *registry.UDPLRU
	dispatch      *Dispatcher
	framing       registry.Framing
	binaryDefault bool
}

// NewUDPReceiver binds addr for reading. binaryDefault mirrors the
// TCPListener flag of the same name: when a datagram's first byte matches
// neither the binary magic byte nor a text message tag, true assumes
// binary anyway, false discards the datagram as undetectable.
func NewUDPReceiver(addr string, reg *registry.Registry, lru *registry.UDPLRU, dispatch *Dispatcher, framing registry.Framing, binaryDefault bool) (*UDPReceiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPReceiver{conn: conn, registry: reg, lru: lru, dispatch: dispatch, framing: framing, binaryDefault: binaryDefault}, nil
}

// Addr returns the bound local address.
func (u *UDPReceiver) Addr() net.Addr {
	return u.conn.LocalAddr()
}

// Conn exposes the receiver's socket so a router.Publisher can reuse it
// for sending replies to UDP clients from the same local port they sent
// to, instead of opening a second socket.
func (u *UDPReceiver) Conn() *net.UDPConn {
	return u.conn
}

// Close stops the receiver's socket; a blocked ReadFromUDP in Serve
// returns an error.
func (u *UDPReceiver) Close() error {
	return u.conn.Close()
}

// Serve reads datagrams until Close is called. It always returns a
// non-nil error.
func (u *UDPReceiver) Serve() error {
	buf := make([]byte, udpRecvBufferSize)
	for {
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		u.handleDatagram(buf[:n], addr.AddrPort())
	}
}

func (u *UDPReceiver) handleDatagram(data []byte, from netip.AddrPort) {
	client, ok := u.registry.LookupUDP(from)
	if !ok {
		client = u.registry.RegisterUDP(from)
		log.Info().Uint32("client_id", uint32(client.ID)).Str("remote", from.String()).Msg("udp client registered")
	}

	if evicted, didEvict := u.lru.Touch(from); didEvict {
		if stale, ok := u.registry.LookupUDP(evicted); ok {
			u.registry.Remove(stale.ID)
			log.Info().Uint32("client_id", uint32(stale.ID)).Msg("udp client evicted (LRU)")
		}
	}

	now := uint64(time.Now().UnixNano())
	for len(data) > 0 {
		if client.Protocol == wire.ProtocolUnknown {
			protocol := wire.DetectProtocol(data)
			if protocol == wire.ProtocolUnknown {
				if !u.binaryDefault {
					log.Warn().Uint32("client_id", uint32(client.ID)).Msg("udp datagram has undetectable protocol, discarding")
					return
				}
				protocol = wire.ProtocolBinary
			}
			u.registry.SetProtocol(client.ID, protocol, u.framing)
			client.Protocol = protocol
		}

		msg, consumed, err := u.decodeOne(data, client.Protocol)
		if err != nil {
			log.Warn().Uint32("client_id", uint32(client.ID)).Err(err).Msg("udp decode error, discarding remainder of datagram")
			return
		}
		if !u.dispatch.Dispatch(client.ID, msg, now) {
			log.Warn().Uint32("client_id", uint32(client.ID)).Msg("input queue full, dropping message")
		}
		data = data[consumed:]
	}
}

// decodeOne decodes a single message from the front of data, which may
// hold several messages packed back to back in one datagram, under the
// already-resolved protocol for this client, and returns how many bytes
// it consumed.
func (u *UDPReceiver) decodeOne(data []byte, protocol wire.Protocol) (wire.Message, int, error) {
	if protocol == wire.ProtocolText {
		line, rest, _ := cutLine(data)
		msg, err := wire.DecodeText(line)
		return msg, len(data) - len(rest), err
	}
	return wire.DecodeBinary(data)
}

func cutLine(data []byte) (line string, rest []byte, found bool) {
	for i, b := range data {
		if b == '\n' {
			return string(trimCR(data[:i])), data[i+1:], true
		}
	}
	return string(data), nil, false
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}
