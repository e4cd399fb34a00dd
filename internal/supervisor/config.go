// Package supervisor wires every component of the matching engine together
// and owns the process lifecycle: startup in dependency order, signal
// handling, and staged shutdown.
package supervisor

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of runtime settings, loadable from flags, a
// config file, or XCHANGE_*-prefixed environment variables (flags take
// precedence, matching the teacher pack's config.Load env-override
// pattern).
type Config struct {
	TCPPort   int    `mapstructure:"tcp_port"`
	UDPPort   int    `mapstructure:"udp_port"`
	McastAddr string `mapstructure:"mcast_addr"`

	BinaryDefault   bool `mapstructure:"binary_default"`
	LengthPrefixed  bool `mapstructure:"length_prefixed"`
	SingleProcessor bool `mapstructure:"single_processor"`
	NoTCP           bool `mapstructure:"no_tcp"`
	NoUDP           bool `mapstructure:"no_udp"`
	NoMulticast     bool `mapstructure:"no_multicast"`
	Quiet           bool `mapstructure:"quiet"`

	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig returns the engine's out-of-the-box settings.
func DefaultConfig() Config {
	return Config{
		TCPPort:   1234,
		UDPPort:   1235,
		McastAddr: "239.255.0.1:1236",
	}
}

// ParseFlags builds a Config from command-line flags, a config file (if
// --config points to one), and XCHANGE_*-prefixed environment variables.
// Precedence, highest first: explicit flags, environment, config file,
// defaults.
func ParseFlags(args []string) (Config, error) {
	fs := pflag.NewFlagSet("xchange-engine", pflag.ContinueOnError)

	def := DefaultConfig()
	tcpPort := fs.Int("tcp-port", def.TCPPort, "TCP listen port")
	udpPort := fs.Int("udp-port", def.UDPPort, "UDP listen port")
	mcastAddr := fs.String("mcast-addr", def.McastAddr, "multicast group address (host:port)")
	binaryDefault := fs.Bool("binary-default", false, "assume binary protocol when a connection's first byte is ambiguous")
	lengthPrefixed := fs.Bool("length-prefixed", false, "use length-prefixed binary framing instead of raw fixed-size framing")
	singleProcessor := fs.Bool("single-processor", false, "run one partition instead of two (A-Z unsplit)")
	noTCP := fs.Bool("no-tcp", false, "disable the TCP listener")
	noUDP := fs.Bool("no-udp", false, "disable the UDP receiver")
	noMulticast := fs.Bool("no-multicast", false, "disable multicast publishing")
	quiet := fs.Bool("quiet", false, "only log warnings and errors")
	configFile := fs.String("config", "", "path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("XCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	cfg := Config{
		TCPPort:         v.GetInt("tcp-port"),
		UDPPort:         v.GetInt("udp-port"),
		McastAddr:       v.GetString("mcast-addr"),
		BinaryDefault:   *binaryDefault || v.GetBool("binary-default"),
		LengthPrefixed:  *lengthPrefixed || v.GetBool("length-prefixed"),
		SingleProcessor: *singleProcessor || v.GetBool("single-processor"),
		NoTCP:           *noTCP || v.GetBool("no-tcp"),
		NoUDP:           *noUDP || v.GetBool("no-udp"),
		NoMulticast:     *noMulticast || v.GetBool("no-multicast"),
		Quiet:           *quiet || v.GetBool("quiet"),
		ConfigFile:      *configFile,
	}
	return cfg, nil
}

// Validate reports a non-nil error if the configuration can't produce a
// runnable engine (e.g. every transport disabled).
func (c Config) Validate() error {
	if c.NoTCP && c.NoUDP {
		return fmt.Errorf("supervisor: at least one of TCP or UDP must be enabled")
	}
	if c.TCPPort <= 0 || c.TCPPort > 65535 {
		return fmt.Errorf("supervisor: tcp-port out of range: %d", c.TCPPort)
	}
	if c.UDPPort <= 0 || c.UDPPort > 65535 {
		return fmt.Errorf("supervisor: udp-port out of range: %d", c.UDPPort)
	}
	return nil
}
