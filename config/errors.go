// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network has no preset and no gateway URL was given.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\" or \"local\" unless meshurl is set)")

	// ErrInvalidMeshURL indicates the gateway URL is malformed.
	ErrInvalidMeshURL = errors.New("config: invalid mesh URL")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrFeeTooLow indicates the configured fee floor is below the network minimum.
	ErrFeeTooLow = errors.New("config: minimum fee below network minimum")

	// ErrInvalidTimeout indicates a non-positive request timeout.
	ErrInvalidTimeout = errors.New("config: request timeout must be positive")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidDNSUpstream indicates the DNS upstream is not host:port.
	ErrInvalidDNSUpstream = errors.New("config: dns upstream must be host:port")

	// ErrInvalidConfig indicates the configuration file could not be parsed.
	ErrInvalidConfig = errors.New("config: invalid configuration file")
)
