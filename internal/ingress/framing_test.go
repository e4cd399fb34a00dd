package ingress

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

func TestDecoderDetectsAndDecodesTextMessages(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("N,1,IBM,100,50,B,1\n")
	buf.WriteString("F\n")

	dec := NewDecoder(&buf, registry.FramingRaw, false)
	msg, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.KindNewOrder, msg.Kind())
	assert.Equal(t, wire.ProtocolText, dec.Protocol())

	msg, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.KindFlush, msg.Kind())
}

func TestDecoderDetectsAndDecodesRawBinaryMessages(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(wire.EncodeBinary(nil, &wire.NewOrder{UserID: 1, Symbol: wire.SymbolFrom("IBM"), Price: 100, Quantity: 50, Side: wire.Buy, UserOrderID: 1}))
	buf.Write(wire.EncodeBinary(nil, &wire.Flush{}))

	dec := NewDecoder(&buf, registry.FramingRaw, false)
	msg, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.KindNewOrder, msg.Kind())
	assert.Equal(t, wire.ProtocolBinary, dec.Protocol())

	msg, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.KindFlush, msg.Kind())
}

func TestDecoderDecodesLengthPrefixedBinaryMessages(t *testing.T) {
	payload := wire.EncodeBinary(nil, &wire.Cancel{UserID: 1, UserOrderID: 1})
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)

	dec := NewDecoder(&buf, registry.FramingLengthPrefixed, false)
	msg, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.KindCancel, msg.Kind())
}

func TestDecoderReturnsEOFAtCleanClose(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(nil), registry.FramingRaw, false)
	_, err := dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderRejectsUnrecognizedFirstByte(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte("?garbage")), registry.FramingRaw, false)
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestDecoderFallsBackToBinaryDecodeErrorInsteadOfUnknownProtocol(t *testing.T) {
	// An ambiguous first byte can never actually decode as binary (every
	// real binary frame starts with the magic byte), so binaryDefault
	// doesn't make decoding succeed — it changes the failure from a
	// protocol-detection rejection to a binary decode error, which is
	// what a malformed-but-presumed-binary client should see.
	dec := NewDecoder(bytes.NewReader([]byte("?garbage")), registry.FramingRaw, true)
	_, err := dec.Next()
	assert.Equal(t, wire.ProtocolBinary, dec.Protocol())
	assert.NotErrorIs(t, err, ErrUnknownProtocol)
	assert.Error(t, err)
}
