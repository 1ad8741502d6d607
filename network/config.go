package network

import "fmt"

// Environment variables read by ResolveConfig. They match the MCM_<KEY>
// names of the meshurl and meshnetwork configuration keys.
const (
	EnvMeshURL     = "MCM_MESHURL"
	EnvMeshNetwork = "MCM_MESHNETWORK"
)

// MeshConfig holds the connection parameters for a Mesh API gateway.
type MeshConfig struct {
	URL     string `json:"url"`
	Network string `json:"network"` // Mesh network identifier, e.g. "mainnet"
}

// NetworkPresets contains default gateway configurations for known networks.
var NetworkPresets = map[string]MeshConfig{
	"mainnet": {URL: "http://api-aus.mochimo.org:8080", Network: "mainnet"},
	"local":   {URL: "http://localhost:8080", Network: "mainnet"},
}

// ResolveConfig merges gateway configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (MCM_MESHURL, MCM_MESHNETWORK)
//  3. Network presets (lowest priority)
//
// The Mesh network identifier defaults to "mainnet" when no source sets it.
func ResolveConfig(flags *MeshConfig, env map[string]string, network string) (*MeshConfig, error) {
	var result MeshConfig

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
	}

	if env != nil {
		if v := env[EnvMeshURL]; v != "" {
			result.URL = v
		}
		if v := env[EnvMeshNetwork]; v != "" {
			result.Network = v
		}
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.Network != "" {
			result.Network = flags.Network
		}
	}

	if result.Network == "" {
		result.Network = "mainnet"
	}
	if result.URL == "" {
		return nil, fmt.Errorf("%w: %q has no preset (set --mesh-url, %s, or config file)", ErrMissingURL, network, EnvMeshURL)
	}
	return &result, nil
}
