package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Watch loads the config at path, hands it to onUpdate and then polls the
// file every interval. A changed file that fails to load is logged and the
// previous config stays in effect.
func Watch(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*Config)) error {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	onUpdate(cfg)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastMod, lastSize := info.ModTime(), info.Size()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
				continue
			}
			lastMod, lastSize = info.ModTime(), info.Size()

			cfg, err := Load(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("config reload failed, keeping previous")
				continue
			}
			onUpdate(cfg)
		}
	}()
	return nil
}
