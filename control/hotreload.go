// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reloads the configuration file on demand, typically on SIGHUP.

package control

import (
	"context"
	"os"
)

// ReloadFile loads path and installs it. On failure the current
// configuration stays in place.
func (cs *ConfigStore) ReloadFile(path string) error {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	return cs.SetConfig(cfg)
}

// ReloadOn reloads path each time trigger delivers a signal, until ctx is
// done or trigger is closed. post hands the reload to the goroutine that
// owns the sockets, so hooks may touch them; nil runs it inline.
func (cs *ConfigStore) ReloadOn(ctx context.Context, trigger <-chan os.Signal, path string, post func(func())) {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-trigger:
			if !ok {
				return
			}
			log.WithField("signal", sig).WithField("path", path).Info("reloading configuration")
			post(func() {
				if err := cs.ReloadFile(path); err != nil {
					log.WithError(err).Warn("configuration reload failed")
				}
			})
		}
	}
}
