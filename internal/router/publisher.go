package router

import (
	"encoding/binary"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/rs/zerolog/log"

	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// maxPartialWriteRetries bounds how many times Publisher retries a TCP
// write that only partially succeeded before giving up on that client and
// tearing down its connection, per spec.md §4.8's bounded-retry rule.
const maxPartialWriteRetries = 3

// Publisher is the production Sender: it frames each message the way its
// destination client expects (binary raw, binary length-prefixed, or
// text) and writes it to that client's TCP connection or, for UDP
// clients, to a shared UDP socket; every message is also always published
// to the multicast group.
type Publisher struct {
	udpConn   *net.UDPConn // shared outbound socket for UDP client replies
	multicast *ipv4.PacketConn
	mcastAddr *net.UDPAddr
}

// NewPublisher creates a publisher. udpConn is the same socket the UDP
// receiver reads from, reused for replies so UDP clients see responses
// from the port they sent to. multicastAddr is a UDP multicast group
// address (e.g. "239.255.0.1:1236").
func NewPublisher(udpConn *net.UDPConn, multicastAddr string) (*Publisher, error) {
	mcastAddr, err := net.ResolveUDPAddr("udp", multicastAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	// TTL 1 keeps multicast traffic on the local network segment, the
	// conventional default for market-data feeds that aren't meant to
	// cross a router; loopback lets a subscriber on the same host (e.g.
	// a test harness) receive its own publisher's packets.
	if err := pc.SetMulticastTTL(1); err != nil {
		conn.Close()
		return nil, err
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{udpConn: udpConn, multicast: pc, mcastAddr: mcastAddr}, nil
}

// Close releases the multicast socket. The shared UDP receiver socket is
// owned by the caller and not closed here.
func (p *Publisher) Close() error {
	return p.multicast.Close()
}

// SendToClient frames m per c's detected protocol/framing and delivers it
// over c's transport.
func (p *Publisher) SendToClient(c *registry.Client, m wire.Message) {
	buf := p.frame(c, m)
	if buf == nil {
		return
	}

	switch c.Transport {
	case registry.TransportTCP:
		p.writeTCP(c, buf)
	case registry.TransportUDP:
		if _, err := p.udpConn.WriteToUDPAddrPort(buf, c.UDPAddr); err != nil {
			log.Warn().Uint32("client_id", uint32(c.ID)).Err(err).Msg("udp reply send failed")
		}
	}
}

func (p *Publisher) frame(c *registry.Client, m wire.Message) []byte {
	if c.Protocol == wire.ProtocolText {
		return []byte(wire.EncodeText(m) + "\n")
	}

	payload := wire.EncodeBinary(nil, m)
	if c.Framing != registry.FramingLengthPrefixed {
		return payload
	}

	out := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// writeTCP writes buf to c's connection, retrying a short partial write up
// to maxPartialWriteRetries times before closing the connection and
// removing it from service.
func (p *Publisher) writeTCP(c *registry.Client, buf []byte) {
	for attempt := 0; len(buf) > 0 && attempt < maxPartialWriteRetries; attempt++ {
		n, err := c.Conn.Write(buf)
		if err != nil {
			log.Warn().Uint32("client_id", uint32(c.ID)).Err(err).Msg("tcp send failed, closing connection")
			c.Conn.Close()
			return
		}
		buf = buf[n:]
	}
	if len(buf) > 0 {
		log.Warn().Uint32("client_id", uint32(c.ID)).Msg("tcp send exhausted retries on partial write, closing connection")
		c.Conn.Close()
	}
}

// SendMulticast publishes m, binary-encoded, to the multicast group
// regardless of any individual client's protocol — the multicast feed is
// always binary.
func (p *Publisher) SendMulticast(m wire.Message) {
	buf := wire.EncodeBinary(nil, m)
	if _, err := p.multicast.WriteTo(buf, nil, p.mcastAddr); err != nil {
		log.Warn().Err(err).Msg("multicast send failed")
	}
}
