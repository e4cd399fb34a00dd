package ingress

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"strings"

	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// maxLengthPrefixedMessage bounds a single length-prefixed frame so a
// corrupt or hostile length field can't make a connection's reader try to
// allocate an unbounded buffer.
const maxLengthPrefixedMessage = 4096

// ErrUnknownProtocol is returned when a connection's first byte matches
// neither the binary magic byte nor a recognized text message tag.
var ErrUnknownProtocol = errors.New("ingress: could not detect protocol from first byte")

// Decoder reads successive input messages off one client connection,
// detecting the protocol from the first byte and then decoding every
// subsequent message the same way.
type Decoder struct {
	r             *bufio.Reader
	framing       registry.Framing
	protocol      wire.Protocol
	binaryDefault bool
}

// NewDecoder wraps r. framing selects how binary messages are delimited if
// the connection turns out to be speaking the binary protocol; it has no
// effect for text connections, which are always newline-delimited.
// binaryDefault decides what happens when the first byte matches neither
// the binary magic byte nor a text message tag: true assumes binary
// anyway (malformed client, or a byte the detector doesn't recognize),
// false rejects the connection with ErrUnknownProtocol.
func NewDecoder(r io.Reader, framing registry.Framing, binaryDefault bool) *Decoder {
	return &Decoder{r: bufio.NewReader(r), framing: framing, binaryDefault: binaryDefault}
}

// Protocol reports the protocol detected so far, or ProtocolUnknown before
// the first message has been read.
func (d *Decoder) Protocol() wire.Protocol {
	return d.protocol
}

// Next reads and decodes the next message from the connection, detecting
// the protocol on the very first call. It returns io.EOF when the peer has
// closed the connection cleanly between messages.
func (d *Decoder) Next() (wire.Message, error) {
	peek, err := d.r.Peek(1)
	if err != nil {
		return nil, err
	}

	if d.protocol == wire.ProtocolUnknown {
		d.protocol = wire.DetectProtocol(peek)
		if d.protocol == wire.ProtocolUnknown {
			if !d.binaryDefault {
				return nil, ErrUnknownProtocol
			}
			d.protocol = wire.ProtocolBinary
		}
	}

	if d.protocol == wire.ProtocolText {
		return d.nextText()
	}
	return d.nextBinary()
}

func (d *Decoder) nextText() (wire.Message, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return wire.DecodeText(strings.TrimRight(line, "\r\n"))
}

func (d *Decoder) nextBinary() (wire.Message, error) {
	if d.framing == registry.FramingLengthPrefixed {
		return d.nextBinaryLengthPrefixed()
	}
	return d.nextBinaryRaw()
}

// nextBinaryRaw reads exactly as many bytes as the message's tag implies,
// without any length prefix: it peeks the tag byte to learn the size,
// then reads that many bytes whole.
func (d *Decoder) nextBinaryRaw() (wire.Message, error) {
	header, err := d.r.Peek(2)
	if err != nil {
		return nil, err
	}
	size, err := wire.InputMessageSize(header[1])
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	msg, _, err := wire.DecodeBinary(buf)
	return msg, err
}

func (d *Decoder) nextBinaryLengthPrefixed() (wire.Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxLengthPrefixedMessage {
		return nil, errors.New("ingress: length-prefixed frame exceeds maximum size")
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	msg, _, err := wire.DecodeBinary(buf)
	return msg, err
}
