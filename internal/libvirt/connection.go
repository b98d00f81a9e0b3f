package libvirt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"
)

// DefaultMaxVCPUsType is the hypervisor type queried by MaxVCPUs when none is
// given.
const DefaultMaxVCPUsType = "xen"

type state int

const (
	stateUnopened state = iota
	stateOpen
	stateClosed
)

// Connection is one session to a hypervisor endpoint.
//
// A Connection is created unopened, becomes usable after Open and is released
// by Close. It is not safe for concurrent use beyond its own lifecycle
// transitions; callers sharing one Connection must synchronize.
type Connection struct {
	uri    string
	opener Opener
	logger zerolog.Logger

	mu      sync.Mutex
	state   state
	session Session
}

// Option configures a Connection.
type Option func(*Connection)

// WithOpener replaces the function used to open the native session.
func WithOpener(o Opener) Option {
	return func(c *Connection) {
		c.opener = o
	}
}

// WithLogger sets the logger used for lifecycle and failure events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Connection) {
		c.logger = l
	}
}

// NewConnection returns an unopened Connection to uri.
func NewConnection(uri string, opts ...Option) *Connection {
	c := &Connection{
		uri:    uri,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opener == nil {
		c.opener = NewOpener("", 0)
	}
	c.logger = c.logger.With().Str("uri", uri).Logger()
	return c
}

// WithConnection opens a connection to uri, runs fn and closes the
// connection on every exit path. A close failure is joined with fn's error.
func WithConnection(ctx context.Context, uri string, fn func(*Connection) error, opts ...Option) (err error) {
	c := NewConnection(uri, opts...)
	if _, err := c.OpenContext(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return fn(c)
}

// EndpointURI returns the URI the connection was constructed with.
func (c *Connection) EndpointURI() string {
	return c.uri
}

// Open opens the hypervisor session.
func (c *Connection) Open() (bool, error) {
	return c.OpenContext(context.Background())
}

// OpenContext opens the hypervisor session, giving up when ctx is done.
//
// Opening an open connection fails with ErrAlreadyOpen and reopening a closed
// one fails with ErrClosed.
func (c *Connection) OpenContext(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateOpen:
		return false, ErrAlreadyOpen
	case stateClosed:
		return false, ErrClosed
	}

	c.logger.Debug().Msg("opening hypervisor connection")
	s, err := c.opener(ctx, c.uri)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to open hypervisor connection")
		return false, newError(ErrConnection, "open", err, "Failed to open %s", c.uri)
	}
	if s == nil {
		return false, newError(ErrConnection, "open", nil, "Failed to open %s", c.uri)
	}

	c.session = s
	c.state = stateOpen
	c.logger.Debug().Msg("hypervisor connection open")
	return true, nil
}

// IsClosed reports whether there is no live session, either because the
// connection was never opened or because it was closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == nil
}

// Close releases the hypervisor session. It is safe to call Close multiple
// times and on a connection that was never opened.
//
// The connection is closed afterwards even if the native close fails.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateOpen {
		return nil
	}

	s := c.session
	c.session = nil
	c.state = stateClosed

	if err := s.Disconnect(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to close hypervisor connection")
		return newError(ErrSystemCall, "close", err, "Connection close failed")
	}

	c.logger.Debug().Msg("hypervisor connection closed")
	return nil
}

// active returns the live session or the usage error for the current state.
func (c *Connection) active() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateUnopened:
		return nil, ErrNotOpen
	case stateClosed:
		return nil, ErrClosed
	}
	return c.session, nil
}

// Type returns the name of the hypervisor driver, e.g. "QEMU".
func (c *Connection) Type() (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}

	t, err := s.ConnectGetType()
	if err != nil {
		return "", newError(ErrRetrieve, "type", err, "Couldn't retrieve connection type")
	}
	return t, nil
}

// Version returns the hypervisor version code (major*1000000 +
// minor*1000 + release).
func (c *Connection) Version() (uint64, error) {
	s, err := c.active()
	if err != nil {
		return 0, err
	}

	v, err := s.ConnectGetVersion()
	if err != nil {
		return 0, newError(ErrRetrieve, "version", err, "Couldn't retrieve connection version")
	}
	return v, nil
}

// Hostname returns the host name of the hypervisor.
func (c *Connection) Hostname() (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}

	h, err := s.ConnectGetHostname()
	if err != nil {
		return "", newError(ErrRetrieve, "hostname", err, "Couldn't retrieve connection hostname")
	}
	return h, nil
}

// URI returns the canonical URI of the connection as reported by libvirt,
// which may differ from the one it was opened with.
func (c *Connection) URI() (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}

	u, err := s.ConnectGetUri()
	if err != nil {
		return "", newError(ErrRetrieve, "uri", err, "Couldn't retrieve connection URI")
	}
	return u, nil
}

// MaxVCPUs returns the maximum number of virtual CPUs for a guest of the
// given hypervisor type. An empty hvType means DefaultMaxVCPUsType.
func (c *Connection) MaxVCPUs(hvType string) (int, error) {
	s, err := c.active()
	if err != nil {
		return 0, err
	}

	if hvType == "" {
		hvType = DefaultMaxVCPUsType
	}

	n, err := s.ConnectGetMaxVcpus(libvirt.OptString{hvType})
	if err != nil {
		return 0, newError(ErrRetrieve, "maxVcpus", err, "Couldn't retrieve max vcpus for %s", hvType)
	}
	if n < 0 {
		return 0, newError(ErrRetrieve, "maxVcpus", nil, "Couldn't retrieve max vcpus for %s: got %d", hvType, n)
	}
	return int(n), nil
}

// NodeInfo returns a snapshot of the host hardware.
func (c *Connection) NodeInfo() (NodeInfo, error) {
	s, err := c.active()
	if err != nil {
		return NodeInfo{}, err
	}

	model, memory, cpus, mhz, nodes, sockets, cores, threads, err := s.NodeGetInfo()
	if err != nil {
		return NodeInfo{}, newError(ErrRetrieve, "nodeInfo", err, "Couldn't retrieve connection node info")
	}

	return NodeInfo{
		Model:     modelString(model),
		MemoryKiB: memory,
		CPUs:      cpus,
		MHz:       mhz,
		NUMANodes: nodes,
		Sockets:   sockets,
		Cores:     cores,
		Threads:   threads,
	}, nil
}

// Capabilities returns the hypervisor capabilities XML document.
func (c *Connection) Capabilities() (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}

	caps, err := s.ConnectGetCapabilities()
	if err != nil {
		return "", newError(ErrRetrieve, "capabilities", err, "Couldn't retrieve connection capabilities")
	}
	return caps, nil
}

// HostCapabilities returns the capabilities document parsed.
func (c *Connection) HostCapabilities() (*libvirtxml.Caps, error) {
	doc, err := c.Capabilities()
	if err != nil {
		return nil, err
	}

	caps := &libvirtxml.Caps{}
	if err := caps.Unmarshal(doc); err != nil {
		return nil, newError(ErrRetrieve, "capabilities", err, "Couldn't parse connection capabilities")
	}
	return caps, nil
}

// NumOfDomains returns the number of running domains.
func (c *Connection) NumOfDomains() (int, error) {
	s, err := c.active()
	if err != nil {
		return 0, err
	}
	return numOfDomains(s)
}

func numOfDomains(s Session) (int, error) {
	n, err := s.ConnectNumOfDomains()
	if err != nil {
		return 0, newError(ErrRetrieve, "numOfDomains", err, "Couldn't retrieve connection num of domains")
	}
	if n < 0 {
		return 0, newError(ErrRetrieve, "numOfDomains", nil, "Couldn't retrieve connection num of domains: got %d", n)
	}
	return int(n), nil
}

// ListDomains returns the ids of running domains.
//
// The count is queried first; a zero count returns an empty slice without
// asking libvirt for the ids.
func (c *Connection) ListDomains() ([]int32, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	count, err := numOfDomains(s)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []int32{}, nil
	}

	ids, err := s.ConnectListDomains(int32(count))
	if err != nil {
		return nil, newError(ErrRetrieve, "listDomains", err, "Couldn't retrieve connection list of domain ids")
	}
	if ids == nil {
		return []int32{}, nil
	}

	seen := make(map[int32]bool, len(ids))
	out := make([]int32, 0, count)
	for _, id := range ids {
		if len(out) == count {
			break
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// NumOfDefinedDomains returns the number of defined domains that are not
// running.
func (c *Connection) NumOfDefinedDomains() (int, error) {
	s, err := c.active()
	if err != nil {
		return 0, err
	}
	return numOfDefinedDomains(s)
}

func numOfDefinedDomains(s Session) (int, error) {
	n, err := s.ConnectNumOfDefinedDomains()
	if err != nil {
		return 0, newError(ErrRetrieve, "numOfDefinedDomains", err, "Couldn't retrieve connection num of defined domains")
	}
	if n < 0 {
		return 0, newError(ErrRetrieve, "numOfDefinedDomains", nil, "Couldn't retrieve connection num of defined domains: got %d", n)
	}
	return int(n), nil
}

// ListDefinedDomains returns the names of defined domains that are not
// running.
//
// The count is queried first; a zero count returns an empty slice without
// asking libvirt for the names. Empty and repeated names are dropped.
func (c *Connection) ListDefinedDomains() ([]string, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	count, err := numOfDefinedDomains(s)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []string{}, nil
	}

	names, err := s.ConnectListDefinedDomains(int32(count))
	if err != nil {
		return nil, newError(ErrRetrieve, "listDefinedDomains", err, "Couldn't retrieve connection list of defined domain names")
	}
	if names == nil {
		return []string{}, nil
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, count)
	for _, name := range names {
		if len(out) == count {
			break
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// CreateDomainLinux defines a domain from xml and starts it.
//
// libvirt's own virDomainCreateLinux boots a transient guest instead; this
// method keeps the definition so the domain survives shutdown. If the start
// fails the definition is removed again.
func (c *Connection) CreateDomainLinux(xml string) (*Domain, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	if err := checkDescriptor(xml); err != nil {
		return nil, newError(ErrCreate, "createDomainLinux", err, "Couldn't create linux domain")
	}

	ref, err := s.DomainDefineXML(xml)
	if err != nil {
		return nil, newError(ErrCreate, "createDomainLinux", err, "Couldn't create linux domain")
	}

	if err := s.DomainCreate(ref); err != nil {
		if undefErr := s.DomainUndefine(ref); undefErr != nil {
			c.logger.Warn().Err(undefErr).Str("domain", ref.Name).Msg("failed to undefine domain after start failure")
		}
		return nil, newError(ErrCreate, "createDomainLinux", err, "Couldn't start linux domain %q", ref.Name)
	}

	d, ok := wrapDomain(c, ref)
	if !ok {
		return nil, newError(ErrCreate, "createDomainLinux", nil, "Couldn't create linux domain")
	}
	c.logger.Debug().Str("domain", d.Name()).Msg("domain created")
	return d, nil
}

// DomainByName looks up a domain by name.
func (c *Connection) DomainByName(name string) (*Domain, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	ref, err := s.DomainLookupByName(name)
	return c.lookedUp(ref, err, "getDomainByName", "Can not find domain with name '%s'", name)
}

// DomainByID looks up a running domain by its hypervisor id.
func (c *Connection) DomainByID(id int32) (*Domain, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	ref, err := s.DomainLookupByID(id)
	return c.lookedUp(ref, err, "getDomainById", "Can not find domain with id '%d'", id)
}

// DomainByUUID looks up a domain by UUID in any of the standard string forms.
func (c *Connection) DomainByUUID(id string) (*Domain, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, newError(ErrRetrieve, "getDomainByUuid", err, "Can not find domain with uuid '%s'", id)
	}

	ref, err := s.DomainLookupByUUID(libvirt.UUID(parsed))
	return c.lookedUp(ref, err, "getDomainByUuid", "Can not find domain with uuid '%s'", id)
}

func (c *Connection) lookedUp(ref libvirt.Domain, err error, op, format string, arg any) (*Domain, error) {
	if err != nil {
		return nil, newError(ErrRetrieve, op, err, format, arg)
	}
	d, ok := wrapDomain(c, ref)
	if !ok {
		return nil, newError(ErrRetrieve, op, nil, format, arg)
	}
	return d, nil
}

// DefineDomainXML defines a persistent domain from xml without starting it.
// On failure the error message contains the descriptor.
func (c *Connection) DefineDomainXML(xml string) (*Domain, error) {
	s, err := c.active()
	if err != nil {
		return nil, err
	}

	if err := checkDescriptor(xml); err != nil {
		return nil, newError(ErrDefinition, "defineDomainXml", err, "Can not define domain with xml:\n%s", xml)
	}

	ref, err := s.DomainDefineXML(xml)
	if err != nil {
		return nil, newError(ErrDefinition, "defineDomainXml", err, "Can not define domain with xml:\n%s", xml)
	}

	d, ok := wrapDomain(c, ref)
	if !ok {
		return nil, newError(ErrDefinition, "defineDomainXml", nil, "Can not define domain with xml:\n%s", xml)
	}
	c.logger.Debug().Str("domain", d.Name()).Msg("domain defined")
	return d, nil
}

// checkDescriptor rejects descriptors that are not well-formed domain XML.
func checkDescriptor(xml string) error {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(xml); err != nil {
		return fmt.Errorf("malformed domain XML: %w", err)
	}
	return nil
}
