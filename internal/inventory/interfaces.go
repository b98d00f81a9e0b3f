package inventory

import (
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/hvconn/internal/libvirt"
)

// hostReader defines the host introspection operations needed for Host.
//
// In production, this is satisfied by *libvirt.Connection.
// In tests, this is satisfied by mock implementations.
type hostReader interface {
	// Type returns the hypervisor driver name
	Type() (string, error)

	// Version returns the hypervisor version code
	Version() (uint64, error)

	// Hostname returns the hypervisor host name
	Hostname() (string, error)

	// URI returns the canonical connection URI
	URI() (string, error)

	// MaxVCPUs returns the vCPU limit for a guest type
	MaxVCPUs(hvType string) (int, error)

	// NodeInfo returns the host hardware snapshot
	NodeInfo() (libvirt.NodeInfo, error)

	// HostCapabilities returns the parsed capabilities document
	HostCapabilities() (*libvirtxml.Caps, error)
}

// domainRef is the read-only view of a domain used by List.
// *libvirt.Domain satisfies it.
type domainRef interface {
	Name() string
	ID() int32
	UUID() string
}

// domainReader defines the enumeration and lookup operations needed for List.
//
// In production, this is satisfied by connReader wrapping *libvirt.Connection.
// In tests, this is satisfied by mock implementations.
type domainReader interface {
	// ListDomains returns running domain ids
	ListDomains() ([]int32, error)

	// ListDefinedDomains returns defined, inactive domain names
	ListDefinedDomains() ([]string, error)

	// DomainByID looks up a running domain
	DomainByID(id int32) (domainRef, error)

	// DomainByName looks up any domain by name
	DomainByName(name string) (domainRef, error)
}

// connReader adapts *libvirt.Connection to domainReader.
type connReader struct {
	*libvirt.Connection
}

func (r connReader) DomainByID(id int32) (domainRef, error) {
	d, err := r.Connection.DomainByID(id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r connReader) DomainByName(name string) (domainRef, error) {
	d, err := r.Connection.DomainByName(name)
	if err != nil {
		return nil, err
	}
	return d, nil
}
