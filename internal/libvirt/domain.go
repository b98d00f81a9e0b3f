package libvirt

import (
	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
)

// Domain is a reference to a single virtual machine known to the hypervisor.
//
// A Domain is only produced by Connection lookups and definitions. It stays
// meaningful only while the owning Connection is open.
type Domain struct {
	ref  libvirt.Domain
	conn *Connection
}

// wrapDomain is the only way a Domain comes into existence. ok is false for a
// zero reference, which libvirt never hands out for a real domain.
func wrapDomain(c *Connection, ref libvirt.Domain) (*Domain, bool) {
	if ref.Name == "" && ref.UUID == (libvirt.UUID{}) {
		return nil, false
	}
	return &Domain{ref: ref, conn: c}, true
}

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.ref.Name
}

// ID returns the hypervisor id, or -1 if the domain is not running.
func (d *Domain) ID() int32 {
	return d.ref.ID
}

// UUID returns the domain UUID in canonical string form.
func (d *Domain) UUID() string {
	return uuid.UUID(d.ref.UUID).String()
}

// Valid reports whether the owning connection is still open.
func (d *Domain) Valid() bool {
	return d.conn != nil && !d.conn.IsClosed()
}

// Native returns the underlying go-libvirt reference for callers that manage
// domain state directly.
func (d *Domain) Native() libvirt.Domain {
	return d.ref
}

// NodeInfo is a snapshot of the host hardware reported by libvirt.
type NodeInfo struct {
	Model     string `json:"model" yaml:"model"`
	MemoryKiB uint64 `json:"memoryKiB" yaml:"memoryKiB"`
	CPUs      int32  `json:"cpus" yaml:"cpus"`
	MHz       int32  `json:"mhz" yaml:"mhz"`
	NUMANodes int32  `json:"numaNodes" yaml:"numaNodes"`
	Sockets   int32  `json:"sockets" yaml:"sockets"`
	Cores     int32  `json:"cores" yaml:"cores"`
	Threads   int32  `json:"threads" yaml:"threads"`
}

// modelString converts the NUL-padded CPU model field to a string.
func modelString(model [32]int8) string {
	b := make([]byte, 0, len(model))
	for _, c := range model {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
