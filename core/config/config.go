package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DSCP is the Differentiated Services Codepoint value to be used by senders of
// time synchronization packets. Valid values must be in range [0, 63].
const DSCP = 46

const (
	DefaultLocalAddr      = "0.0.0.0"
	DefaultMulticastGroup = "224.0.1.129"
	DefaultEventPort      = 319
	DefaultGeneralPort    = 320
	DefaultMetricsAddr    = "127.0.0.1:8080"
)

var (
	errInvalidLocalAddr = errors.New("invalid local address")
	errInvalidGroup     = errors.New("invalid IPv4 multicast group")
	errInvalidPort      = errors.New("port out of range [1, 65535]")
	errInvalidDSCP      = errors.New("DSCP value out of range [0, 63]")
)

type Config struct {
	LocalAddr            string `toml:"local_address,omitempty"`
	Interface            string `toml:"interface,omitempty"`
	MulticastGroup       string `toml:"multicast_group,omitempty"`
	EventPort            int    `toml:"event_port,omitempty"`
	GeneralPort          int    `toml:"general_port,omitempty"`
	MetricsAddr          string `toml:"metrics_address,omitempty"`
	DSCP                 *int   `toml:"dscp,omitempty"`
	HardwareTimestamping bool   `toml:"hardware_timestamping,omitempty"`
}

func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.LocalAddr == "" {
		c.LocalAddr = DefaultLocalAddr
	}
	if c.MulticastGroup == "" {
		c.MulticastGroup = DefaultMulticastGroup
	}
	if c.EventPort == 0 {
		c.EventPort = DefaultEventPort
	}
	if c.GeneralPort == 0 {
		c.GeneralPort = DefaultGeneralPort
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.DSCP == nil {
		dscp := DSCP
		c.DSCP = &dscp
	}
}

func (c *Config) Validate() error {
	if ip := net.ParseIP(c.LocalAddr); ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q", errInvalidLocalAddr, c.LocalAddr)
	}
	if g := net.ParseIP(c.MulticastGroup); g == nil || g.To4() == nil || !g.IsMulticast() {
		return fmt.Errorf("%w: %q", errInvalidGroup, c.MulticastGroup)
	}
	for _, p := range []int{c.EventPort, c.GeneralPort} {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %d", errInvalidPort, p)
		}
	}
	if *c.DSCP < 0 || *c.DSCP > 63 {
		return fmt.Errorf("%w: %d", errInvalidDSCP, *c.DSCP)
	}
	return nil
}

// Decode reads a toml configuration from r, fills in defaults and
// validates the result. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	var c Config
	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&c)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	c.applyDefaults()
	err = c.Validate()
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

func Load(configFile string) (Config, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return Decode(bytes.NewReader(raw))
}

func (c *Config) Group() net.IP {
	return net.ParseIP(c.MulticastGroup).To4()
}

func (c *Config) EventAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.LocalAddr), Port: c.EventPort}
}

func (c *Config) GeneralAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.LocalAddr), Port: c.GeneralPort}
}

// NetInterface returns the configured interface, or nil if none is set.
func (c *Config) NetInterface() (*net.Interface, error) {
	if c.Interface == "" {
		return nil, nil
	}
	return net.InterfaceByName(c.Interface)
}

func (c *Config) DSCPValue() uint8 {
	return uint8(*c.DSCP)
}
