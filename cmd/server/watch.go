package main

import (
	"context"
	"os"
	"time"
)

// watchPolicies polls the policy file and swaps the pricing engine when
// the file's mtime moves forward. A reload that fails to parse or
// validate keeps the previous table in place.
func (s *server) watchPolicies(ctx context.Context, interval time.Duration) {
	var lastMod time.Time
	if info, err := os.Stat(s.policyPath); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(s.policyPath)
			if err != nil {
				logger.Warn().Err(err).Str("path", s.policyPath).Msg("stat policy file")
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			if err := s.reloadPolicies(); err != nil {
				logger.Error().Err(err).Msg("policy reload failed, keeping previous table")
				continue
			}
			logger.Info().Str("path", s.policyPath).Msg("channel policies reloaded")
		}
	}
}
