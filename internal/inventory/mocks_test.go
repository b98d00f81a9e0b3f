package inventory

import (
	"fmt"

	golibvirt "github.com/digitalocean/go-libvirt"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/hvconn/internal/libvirt"
)

// mockHost is a mock implementation of the hostReader interface for testing.
type mockHost struct {
	typeFunc         func() (string, error)
	versionFunc      func() (uint64, error)
	hostnameFunc     func() (string, error)
	uriFunc          func() (string, error)
	maxVCPUsFunc     func(hvType string) (int, error)
	nodeInfoFunc     func() (libvirt.NodeInfo, error)
	capabilitiesFunc func() (*libvirtxml.Caps, error)

	maxVCPUsCalls []string
}

// newMockHost creates a mock host answering like a small KVM hypervisor.
func newMockHost() *mockHost {
	return &mockHost{
		typeFunc:     func() (string, error) { return "QEMU", nil },
		versionFunc:  func() (uint64, error) { return 8002000, nil },
		hostnameFunc: func() (string, error) { return "testhost", nil },
		uriFunc:      func() (string, error) { return "qemu:///system", nil },
		maxVCPUsFunc: func(string) (int, error) { return 255, nil },
		nodeInfoFunc: func() (libvirt.NodeInfo, error) {
			return libvirt.NodeInfo{Model: "x86_64", MemoryKiB: 16777216, CPUs: 8, MHz: 3000, NUMANodes: 1, Sockets: 1, Cores: 4, Threads: 2}, nil
		},
		capabilitiesFunc: func() (*libvirtxml.Caps, error) {
			return &libvirtxml.Caps{
				Host: libvirtxml.CapsHost{
					CPU: &libvirtxml.CapsHostCPU{Arch: "x86_64", Model: "Skylake-Client"},
				},
			}, nil
		},
	}
}

func (m *mockHost) Type() (string, error)     { return m.typeFunc() }
func (m *mockHost) Version() (uint64, error)  { return m.versionFunc() }
func (m *mockHost) Hostname() (string, error) { return m.hostnameFunc() }
func (m *mockHost) URI() (string, error)      { return m.uriFunc() }

func (m *mockHost) MaxVCPUs(hvType string) (int, error) {
	m.maxVCPUsCalls = append(m.maxVCPUsCalls, hvType)
	return m.maxVCPUsFunc(hvType)
}

func (m *mockHost) NodeInfo() (libvirt.NodeInfo, error)         { return m.nodeInfoFunc() }
func (m *mockHost) HostCapabilities() (*libvirtxml.Caps, error) { return m.capabilitiesFunc() }

// mockDomain is a fixed domainRef.
type mockDomain struct {
	name string
	id   int32
	uuid string
}

func (d mockDomain) Name() string { return d.name }
func (d mockDomain) ID() int32    { return d.id }
func (d mockDomain) UUID() string { return d.uuid }

// mockDomains is a mock implementation of the domainReader interface backed
// by a fixed set of domains.
type mockDomains struct {
	running []mockDomain
	defined []mockDomain

	listDomainsErr        error
	listDefinedDomainsErr error

	// Names or ids that disappear between enumeration and lookup
	vanished map[string]bool

	// lookupErr, when set, fails every lookup
	lookupErr error

	listDomainsCalls        int
	listDefinedDomainsCalls int
}

func (m *mockDomains) ListDomains() ([]int32, error) {
	m.listDomainsCalls++
	if m.listDomainsErr != nil {
		return nil, m.listDomainsErr
	}
	ids := make([]int32, 0, len(m.running))
	for _, d := range m.running {
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (m *mockDomains) ListDefinedDomains() ([]string, error) {
	m.listDefinedDomainsCalls++
	if m.listDefinedDomainsErr != nil {
		return nil, m.listDefinedDomainsErr
	}
	names := make([]string, 0, len(m.defined))
	for _, d := range m.defined {
		names = append(names, d.name)
	}
	return names, nil
}

func (m *mockDomains) DomainByID(id int32) (domainRef, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, d := range m.running {
		if d.id == id && !m.vanished[d.name] {
			return d, nil
		}
	}
	return nil, errNotFound(fmt.Sprintf("id %d", id))
}

func (m *mockDomains) DomainByName(name string) (domainRef, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, d := range append(m.running, m.defined...) {
		if d.name == name && !m.vanished[name] {
			return d, nil
		}
	}
	return nil, errNotFound(name)
}

// errNotFound builds the error a Connection returns for a missing domain.
func errNotFound(what string) error {
	return &libvirt.Error{
		Kind: libvirt.ErrRetrieve,
		Op:   "lookup",
		Msg:  fmt.Sprintf("Can not find domain %s", what),
		Err: golibvirt.Error{
			Code:    uint32(golibvirt.ErrNoDomain),
			Message: fmt.Sprintf("Domain not found: %s", what),
		},
	}
}
