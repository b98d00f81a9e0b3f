package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jbweber/hvconn/internal/libvirt"
)

// HostSummary describes a hypervisor host.
type HostSummary struct {
	Driver      string           `json:"driver" yaml:"driver"`
	Version     string           `json:"version" yaml:"version"`
	VersionCode uint64           `json:"versionCode" yaml:"versionCode"`
	Hostname    string           `json:"hostname" yaml:"hostname"`
	URI         string           `json:"uri" yaml:"uri"`
	MaxVCPUs    int              `json:"maxVcpus,omitempty" yaml:"maxVcpus,omitempty"`
	Arch        string           `json:"arch,omitempty" yaml:"arch,omitempty"`
	CPUModel    string           `json:"cpuModel,omitempty" yaml:"cpuModel,omitempty"`
	Node        libvirt.NodeInfo `json:"node" yaml:"node"`
}

// Host summarizes the hypervisor behind c.
//
// The driver, version, host name, URI and node info are required. The vCPU
// limit and the capabilities-derived fields are best effort: drivers that
// cannot answer leave them empty.
func Host(ctx context.Context, c hostReader, hvType string) (*HostSummary, error) {
	logger := zerolog.Ctx(ctx)

	driver, err := c.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get driver type: %w", err)
	}

	code, err := c.Version()
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	hostname, err := c.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}

	uri, err := c.URI()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection URI: %w", err)
	}

	node, err := c.NodeInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get node info: %w", err)
	}

	summary := &HostSummary{
		Driver:      driver,
		Version:     FormatVersion(code),
		VersionCode: code,
		Hostname:    hostname,
		URI:         uri,
		Node:        node,
	}

	if hvType == "" {
		hvType = libvirt.DefaultMaxVCPUsType
	}
	if n, err := c.MaxVCPUs(hvType); err != nil {
		logger.Warn().Err(err).Str("type", hvType).Msg("failed to get max vcpus")
	} else {
		summary.MaxVCPUs = n
	}

	caps, err := c.HostCapabilities()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to get host capabilities")
	} else if caps.Host.CPU != nil {
		summary.Arch = caps.Host.CPU.Arch
		summary.CPUModel = caps.Host.CPU.Model
	}

	return summary, nil
}

// FormatVersion converts a libvirt version code (e.g. 8006000) to dotted
// form (8.6.0).
func FormatVersion(code uint64) string {
	major := code / 1000000
	minor := (code % 1000000) / 1000
	patch := code % 1000
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
