// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/bitfsorg/libmcm-go/network"
	"github.com/bitfsorg/libmcm-go/tx"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if _, ok := network.NetworkPresets[cfg.Network]; !ok && cfg.MeshURL == "" && cfg.MeshDomain == "" {
		return ErrInvalidNetwork
	}

	if cfg.MeshURL != "" {
		if err := validateURL(cfg.MeshURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMeshURL, err)
		}
	}

	if cfg.DNSUpstream != "" {
		if _, _, err := net.SplitHostPort(cfg.DNSUpstream); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDNSUpstream, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.MinimumFee < tx.MinimumFee {
		return fmt.Errorf("%w: %d < %d", ErrFeeTooLow, cfg.MinimumFee, tx.MinimumFee)
	}

	if cfg.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
