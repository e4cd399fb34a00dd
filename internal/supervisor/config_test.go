package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := ParseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, 1234, cfg.TCPPort)
	assert.Equal(t, 1235, cfg.UDPPort)
	assert.Equal(t, "239.255.0.1:1236", cfg.McastAddr)
	assert.False(t, cfg.BinaryDefault)
	assert.False(t, cfg.LengthPrefixed)
	assert.False(t, cfg.SingleProcessor)
}

func TestParseFlagsOverridesDefaults(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"--tcp-port", "7000",
		"--udp-port", "7001",
		"--mcast-addr", "239.1.1.1:9000",
		"--binary-default",
		"--length-prefixed",
		"--single-processor",
		"--no-udp",
		"--quiet",
	})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.TCPPort)
	assert.Equal(t, 7001, cfg.UDPPort)
	assert.Equal(t, "239.1.1.1:9000", cfg.McastAddr)
	assert.True(t, cfg.BinaryDefault)
	assert.True(t, cfg.LengthPrefixed)
	assert.True(t, cfg.SingleProcessor)
	assert.True(t, cfg.NoUDP)
	assert.True(t, cfg.Quiet)
}

func TestParseFlagsRejectsUnknownFlag(t *testing.T) {
	_, err := ParseFlags([]string{"--does-not-exist"})
	assert.Error(t, err)
}

func TestValidateRejectsBothTransportsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoTCP = true
	cfg.NoUDP = true
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangePorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TCPPort = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UDPPort = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
