package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the gateway.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrInvalidResponse indicates the gateway returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrAPIError indicates the gateway answered with a non-2xx status.
	ErrAPIError = errors.New("network: gateway error")

	// ErrTagNotFound indicates the network holds no address for the tag.
	ErrTagNotFound = errors.New("network: tag not found")

	// ErrInvalidTransaction indicates the bytes handed to SubmitTransaction are not a datagram.
	ErrInvalidTransaction = errors.New("network: invalid transaction")

	// ErrMissingURL indicates no gateway URL was configured.
	ErrMissingURL = errors.New("network: gateway URL required")

	// ErrDNSLookupFailed indicates a DNS lookup failed.
	ErrDNSLookupFailed = errors.New("network: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the upstream resolver did not authenticate the answer.
	ErrDNSSECValidationFailed = errors.New("network: DNSSEC validation failed")

	// ErrNoEndpoints indicates SRV discovery returned no records.
	ErrNoEndpoints = errors.New("network: no endpoints found")
)
