package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/xchange-engine/internal/wire"
)

func TestDecodeOneHandlesBackToBackBinaryMessages(t *testing.T) {
	u := &UDPReceiver{}
	data := wire.EncodeBinary(nil, &wire.Cancel{UserID: 1, UserOrderID: 1})
	data = append(data, wire.EncodeBinary(nil, &wire.Flush{})...)

	msg, n, err := u.decodeOne(data, wire.ProtocolBinary)
	require.NoError(t, err)
	assert.Equal(t, wire.KindCancel, msg.Kind())
	assert.Equal(t, wire.SizeCancel, n)

	msg, n, err = u.decodeOne(data[n:], wire.ProtocolBinary)
	require.NoError(t, err)
	assert.Equal(t, wire.KindFlush, msg.Kind())
	assert.Equal(t, wire.SizeFlush, n)
}

func TestDecodeOneHandlesBackToBackTextMessages(t *testing.T) {
	u := &UDPReceiver{}
	data := []byte("C,1,1\nF\n")

	msg, n, err := u.decodeOne(data, wire.ProtocolText)
	require.NoError(t, err)
	assert.Equal(t, wire.KindCancel, msg.Kind())

	msg, _, err = u.decodeOne(data[n:], wire.ProtocolText)
	require.NoError(t, err)
	assert.Equal(t, wire.KindFlush, msg.Kind())
}
