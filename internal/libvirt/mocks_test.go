package libvirt

import (
	"context"
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockSession is a mock implementation of the Session interface for testing.
type mockSession struct {
	mu sync.Mutex

	// Configurable behavior
	getTypeFunc             func() (string, error)
	getVersionFunc          func() (uint64, error)
	getHostnameFunc         func() (string, error)
	getURIFunc              func() (string, error)
	getMaxVcpusFunc         func(hvType libvirt.OptString) (int32, error)
	nodeGetInfoFunc         func() ([32]int8, uint64, int32, int32, int32, int32, int32, int32, error)
	getCapabilitiesFunc     func() (string, error)
	numOfDomainsFunc        func() (int32, error)
	listDomainsFunc         func(maxids int32) ([]int32, error)
	numOfDefinedDomainsFunc func() (int32, error)
	listDefinedDomainsFunc  func(maxnames int32) ([]string, error)
	domainDefineXMLFunc     func(xml string) (libvirt.Domain, error)
	domainCreateFunc        func(dom libvirt.Domain) error
	domainUndefineFunc      func(dom libvirt.Domain) error
	lookupByNameFunc        func(name string) (libvirt.Domain, error)
	lookupByIDFunc          func(id int32) (libvirt.Domain, error)
	lookupByUUIDFunc        func(id libvirt.UUID) (libvirt.Domain, error)
	disconnectFunc          func() error

	// Call tracking
	getMaxVcpusCalls        []libvirt.OptString
	listDomainsCalls        []int32
	listDefinedDomainsCalls []int32
	domainDefineXMLCalls    []string
	domainCreateCalls       []libvirt.Domain
	domainUndefineCalls     []libvirt.Domain
	lookupByUUIDCalls       []libvirt.UUID
	disconnectCalls         int
}

// newMockSession creates a mock session describing a small test host with no
// domains.
func newMockSession() *mockSession {
	m := &mockSession{}

	m.getTypeFunc = func() (string, error) { return "Test", nil }
	m.getVersionFunc = func() (uint64, error) { return 1002000, nil }
	m.getHostnameFunc = func() (string, error) { return "testhost", nil }
	m.getURIFunc = func() (string, error) { return "test:///default", nil }
	m.getMaxVcpusFunc = func(hvType libvirt.OptString) (int32, error) { return 32, nil }
	m.nodeGetInfoFunc = func() ([32]int8, uint64, int32, int32, int32, int32, int32, int32, error) {
		var model [32]int8
		for i, c := range "x86_64" {
			model[i] = int8(c)
		}
		return model, 8388608, 16, 1400, 2, 2, 2, 2, nil
	}
	m.getCapabilitiesFunc = func() (string, error) { return testCapabilitiesXML, nil }

	// Default: no domains at all
	m.numOfDomainsFunc = func() (int32, error) { return 0, nil }
	m.listDomainsFunc = func(maxids int32) ([]int32, error) { return nil, nil }
	m.numOfDefinedDomainsFunc = func() (int32, error) { return 0, nil }
	m.listDefinedDomainsFunc = func(maxnames int32) ([]string, error) { return nil, nil }

	// Default: define succeeds
	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "test-vm", UUID: testUUID, ID: -1}, nil
	}
	m.domainCreateFunc = func(dom libvirt.Domain) error { return nil }
	m.domainUndefineFunc = func(dom libvirt.Domain) error { return nil }

	// Default: lookups fail with libvirt's "no domain" error
	m.lookupByNameFunc = func(name string) (libvirt.Domain, error) {
		return libvirt.Domain{}, errNoDomain(name)
	}
	m.lookupByIDFunc = func(id int32) (libvirt.Domain, error) {
		return libvirt.Domain{}, errNoDomain(fmt.Sprintf("id %d", id))
	}
	m.lookupByUUIDFunc = func(id libvirt.UUID) (libvirt.Domain, error) {
		return libvirt.Domain{}, errNoDomain("uuid")
	}

	m.disconnectFunc = func() error { return nil }

	return m
}

// opener returns an Opener handing out m.
func (m *mockSession) opener() Opener {
	return func(ctx context.Context, uri string) (Session, error) {
		return m, nil
	}
}

func errNoDomain(what string) error {
	return libvirt.Error{
		Code:    uint32(libvirt.ErrNoDomain),
		Message: fmt.Sprintf("Domain not found: %s", what),
	}
}

func (m *mockSession) ConnectGetType() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTypeFunc()
}

func (m *mockSession) ConnectGetVersion() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getVersionFunc()
}

func (m *mockSession) ConnectGetHostname() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getHostnameFunc()
}

func (m *mockSession) ConnectGetUri() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getURIFunc()
}

func (m *mockSession) ConnectGetMaxVcpus(hvType libvirt.OptString) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getMaxVcpusCalls = append(m.getMaxVcpusCalls, hvType)
	return m.getMaxVcpusFunc(hvType)
}

func (m *mockSession) NodeGetInfo() ([32]int8, uint64, int32, int32, int32, int32, int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeGetInfoFunc()
}

func (m *mockSession) ConnectGetCapabilities() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCapabilitiesFunc()
}

func (m *mockSession) ConnectNumOfDomains() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numOfDomainsFunc()
}

func (m *mockSession) ConnectListDomains(maxids int32) ([]int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDomainsCalls = append(m.listDomainsCalls, maxids)
	return m.listDomainsFunc(maxids)
}

func (m *mockSession) ConnectNumOfDefinedDomains() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numOfDefinedDomainsFunc()
}

func (m *mockSession) ConnectListDefinedDomains(maxnames int32) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDefinedDomainsCalls = append(m.listDefinedDomainsCalls, maxnames)
	return m.listDefinedDomainsFunc(maxnames)
}

func (m *mockSession) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockSession) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockSession) DomainUndefine(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainUndefineCalls = append(m.domainUndefineCalls, dom)
	return m.domainUndefineFunc(dom)
}

func (m *mockSession) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupByNameFunc(name)
}

func (m *mockSession) DomainLookupByID(id int32) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupByIDFunc(id)
}

func (m *mockSession) DomainLookupByUUID(id libvirt.UUID) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupByUUIDCalls = append(m.lookupByUUIDCalls, id)
	return m.lookupByUUIDFunc(id)
}

func (m *mockSession) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCalls++
	return m.disconnectFunc()
}

// testUUID is 6695eb01-f6a4-8304-79aa-97f2502e193f, the UUID of the "test"
// domain on libvirt's test:///default driver.
var testUUID = libvirt.UUID{
	0x66, 0x95, 0xeb, 0x01, 0xf6, 0xa4, 0x83, 0x04,
	0x79, 0xaa, 0x97, 0xf2, 0x50, 0x2e, 0x19, 0x3f,
}

const testUUIDString = "6695eb01-f6a4-8304-79aa-97f2502e193f"

const testCapabilitiesXML = `<capabilities>
  <host>
    <uuid>6695eb01-f6a4-8304-79aa-97f2502e193f</uuid>
    <cpu>
      <arch>x86_64</arch>
      <model>Skylake-Client</model>
    </cpu>
  </host>
  <guest>
    <os_type>hvm</os_type>
    <arch name="x86_64">
      <wordsize>64</wordsize>
    </arch>
  </guest>
</capabilities>`

const testDomainXML = `<domain type="test">
  <name>test-vm</name>
  <memory unit="MiB">512</memory>
  <vcpu>1</vcpu>
  <os>
    <type arch="x86_64">hvm</type>
  </os>
</domain>`
