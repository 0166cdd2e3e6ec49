// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Socket configuration, its TOML file form and the store propagating
// reloads.

package control

import (
	"os"
	"strings"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/transport"
	"github.com/momentics/esocket/transport/tcp"
	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "control")

// Config carries everything needed to build connections and listeners.
type Config struct {
	// Timeout is the repeating per-connection timeout, zero for none.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxSend        api.Limit
	MaxRecv        api.Limit
	MaxPeers       api.Limit
	Backlog        int
	ReadSize       int
}

// DefaultConfig returns a Config without timeouts or caps.
func DefaultConfig() *Config {
	return &Config{
		Backlog:  transport.DefaultBacklog,
		ReadSize: transport.DefaultReadSize,
	}
}

// Validate rejects values no socket can work with.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return errors.Errorf("timeout %s is negative", c.Timeout)
	case c.ConnectTimeout < 0:
		return errors.Errorf("connect timeout %s is negative", c.ConnectTimeout)
	case c.Backlog < 0:
		return errors.Errorf("backlog %d is negative", c.Backlog)
	case c.ReadSize < 0:
		return errors.Errorf("read size %d is negative", c.ReadSize)
	}
	return nil
}

// Options returns the connection options described by c.
func (c *Config) Options() []transport.Option {
	return []transport.Option{
		transport.WithTimeout(c.Timeout),
		transport.WithConnectTimeout(c.ConnectTimeout),
		transport.WithMaxSend(c.MaxSend),
		transport.WithMaxRecv(c.MaxRecv),
		transport.WithReadSize(c.ReadSize),
	}
}

// PeerFactory returns a factory giving every peer a handler from
// newHandler and the timeout and caps of c.
func (c *Config) PeerFactory(newHandler func() transport.Handler) *transport.PeerFactory {
	return transport.NewPeerFactory(newHandler, c.Options()...)
}

// ListenerOptions returns the listener options described by c.
func (c *Config) ListenerOptions() []transport.ListenerOption {
	return []transport.ListenerOption{transport.WithMaxPeers(c.MaxPeers)}
}

// ListenerConfig returns a TCP listener configuration for addr.
func (c *Config) ListenerConfig(addr string) tcp.ListenerConfig {
	return tcp.ListenerConfig{Addr: addr, Backlog: c.Backlog, MaxPeers: c.MaxPeers}
}

// Fields renders c for structured logging.
func (c *Config) Fields() logrus.Fields {
	return logrus.Fields{
		"timeout":         c.Timeout,
		"connect_timeout": c.ConnectTimeout,
		"max_send":        FormatSize(c.MaxSend),
		"max_recv":        FormatSize(c.MaxRecv),
		"max_peers":       c.MaxPeers.String(),
		"backlog":         c.Backlog,
		"read_size":       units.BytesSize(float64(c.ReadSize)),
	}
}

// ParseSize parses a byte cap such as "64KiB", "4m" or "1024". Units are
// binary. An empty string, "none" or "unlimited" means no cap.
func ParseSize(s string) (api.Limit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unlimited":
		return api.NoLimit(), nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return api.Limit{}, errors.Wrapf(err, "size %q", s)
	}
	if n < 0 {
		return api.Limit{}, errors.Errorf("size %q is negative", s)
	}
	return api.LimitOf(int(n)), nil
}

// FormatSize renders a byte cap the way ParseSize reads it.
func FormatSize(l api.Limit) string {
	n, ok := l.Get()
	if !ok {
		return "unlimited"
	}
	return units.BytesSize(float64(n))
}

// LoadConfigFile reads a TOML configuration file on top of the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes TOML such as
//
//	timeout = "30s"
//	connect_timeout = "1s"
//	max_send = "1MiB"
//	max_recv = "64KiB"
//	max_peers = 100
//	backlog = 5
//	read_size = "4KiB"
//
// Missing keys keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse toml")
	}
	cfg := DefaultConfig()

	if cfg.Timeout, err = durationKey(tree, "timeout", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = durationKey(tree, "connect_timeout", cfg.ConnectTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxSend, err = sizeKey(tree, "max_send", cfg.MaxSend); err != nil {
		return nil, err
	}
	if cfg.MaxRecv, err = sizeKey(tree, "max_recv", cfg.MaxRecv); err != nil {
		return nil, err
	}
	if tree.Has("max_peers") {
		n, ok := tree.Get("max_peers").(int64)
		if !ok || n < 0 {
			return nil, errors.Errorf("max_peers: want a non-negative integer, got %v", tree.Get("max_peers"))
		}
		cfg.MaxPeers = api.LimitOf(int(n))
	}
	if tree.Has("backlog") {
		n, ok := tree.Get("backlog").(int64)
		if !ok {
			return nil, errors.Errorf("backlog: want an integer, got %v", tree.Get("backlog"))
		}
		cfg.Backlog = int(n)
	}
	if tree.Has("read_size") {
		l, err := sizeKey(tree, "read_size", api.NoLimit())
		if err != nil {
			return nil, err
		}
		if n, ok := l.Get(); ok {
			cfg.ReadSize = n
		}
	}
	return cfg, cfg.Validate()
}

func durationKey(tree *toml.Tree, key string, def time.Duration) (time.Duration, error) {
	if !tree.Has(key) {
		return def, nil
	}
	switch v := tree.Get(key).(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, errors.Wrap(err, key)
		}
		return d, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, errors.Errorf("%s: unsupported value %v", key, v)
	}
}

func sizeKey(tree *toml.Tree, key string, def api.Limit) (api.Limit, error) {
	if !tree.Has(key) {
		return def, nil
	}
	switch v := tree.Get(key).(type) {
	case string:
		l, err := ParseSize(v)
		return l, errors.Wrap(err, key)
	case int64:
		if v < 0 {
			return api.Limit{}, errors.Errorf("%s: size %d is negative", key, v)
		}
		return api.LimitOf(int(v)), nil
	default:
		return api.Limit{}, errors.Errorf("%s: unsupported value %v", key, v)
	}
}

// ConfigStore holds the current Config and notifies hooks when it is
// replaced.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	listeners []func(old, cur *Config)
}

// NewConfigStore initializes a store with cfg, or the defaults if nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: cfg}
}

// Current returns the active configuration. Treat it as read-only.
func (cs *ConfigStore) Current() *Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// SetConfig replaces the configuration and runs the reload hooks in the
// caller's goroutine, in registration order.
func (cs *ConfigStore) SetConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	old := cs.config
	cs.config = cfg
	hooks := append([]func(old, cur *Config){}, cs.listeners...)
	cs.mu.Unlock()

	log.WithFields(cfg.Fields()).Info("configuration updated")
	for _, fn := range hooks {
		fn(old, cfg)
	}
	return nil
}

// OnReload registers a hook called after every SetConfig.
func (cs *ConfigStore) OnReload(fn func(old, cur *Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
