// control/flags.go
// Author: momentics <momentics@gmail.com>
//
// Command line flags overriding a Config.

package control

import (
	"strconv"
	"strings"

	"github.com/momentics/esocket/api"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// sizeValue is a pflag.Value for byte caps.
type sizeValue struct{ l *api.Limit }

func (v sizeValue) Set(s string) error {
	l, err := ParseSize(s)
	if err != nil {
		return err
	}
	*v.l = l
	return nil
}

func (v sizeValue) String() string { return FormatSize(*v.l) }
func (v sizeValue) Type() string   { return "size" }

// countValue is a pflag.Value for peer caps.
type countValue struct{ l *api.Limit }

func (v countValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "", "none", "unlimited":
		*v.l = api.NoLimit()
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return errors.Errorf("invalid count %q", s)
	}
	*v.l = api.LimitOf(n)
	return nil
}

func (v countValue) String() string { return v.l.String() }
func (v countValue) Type() string   { return "count" }

// Flags binds Config fields to a flag set. Only flags given on the command
// line override a loaded Config.
type Flags struct {
	fs  *pflag.FlagSet
	v   Config
	rdz sizeValue
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, v: *DefaultConfig()}
	readSize := api.LimitOf(f.v.ReadSize)
	f.rdz = sizeValue{l: &readSize}

	fs.DurationVar(&f.v.Timeout, "timeout", f.v.Timeout, "repeating per-connection timeout, 0 disables it")
	fs.DurationVar(&f.v.ConnectTimeout, "connect-timeout", f.v.ConnectTimeout, "bound on a pending connect, 0 waits forever")
	fs.Var(sizeValue{l: &f.v.MaxSend}, "max-send", "send buffer cap, e.g. 1MiB")
	fs.Var(sizeValue{l: &f.v.MaxRecv}, "max-recv", "receive buffer cap, e.g. 64KiB")
	fs.Var(countValue{l: &f.v.MaxPeers}, "max-peers", "maximum number of live peers")
	fs.IntVar(&f.v.Backlog, "backlog", f.v.Backlog, "accept queue depth")
	fs.Var(f.rdz, "read-size", "bytes read per readiness notification")
	return f
}

// Apply copies every flag set on the command line onto cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("timeout") {
		cfg.Timeout = f.v.Timeout
	}
	if f.fs.Changed("connect-timeout") {
		cfg.ConnectTimeout = f.v.ConnectTimeout
	}
	if f.fs.Changed("max-send") {
		cfg.MaxSend = f.v.MaxSend
	}
	if f.fs.Changed("max-recv") {
		cfg.MaxRecv = f.v.MaxRecv
	}
	if f.fs.Changed("max-peers") {
		cfg.MaxPeers = f.v.MaxPeers
	}
	if f.fs.Changed("backlog") {
		cfg.Backlog = f.v.Backlog
	}
	if f.fs.Changed("read-size") {
		if n, ok := f.rdz.l.Get(); ok {
			cfg.ReadSize = n
		}
	}
}
