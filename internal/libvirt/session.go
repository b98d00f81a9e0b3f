package libvirt

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

const (
	// DefaultSocketPath is the libvirtd socket for qemu:///system.
	DefaultSocketPath = "/var/run/libvirt/libvirt-sock"

	// DefaultTimeout bounds dialing the libvirt daemon.
	DefaultTimeout = 5 * time.Second
)

// Session is the subset of the libvirt RPC API used by Connection.
//
// In production, this is satisfied by *libvirt.Libvirt directly.
// In tests, this is satisfied by mock implementations.
type Session interface {
	// ConnectGetType returns the hypervisor driver name
	ConnectGetType() (string, error)

	// ConnectGetVersion returns the hypervisor version code
	ConnectGetVersion() (uint64, error)

	// ConnectGetHostname returns the hypervisor host name
	ConnectGetHostname() (string, error)

	// ConnectGetUri returns the canonical connection URI
	ConnectGetUri() (string, error)

	// ConnectGetMaxVcpus returns the max vCPUs for a guest of the given type
	ConnectGetMaxVcpus(hvType libvirt.OptString) (int32, error)

	// NodeGetInfo returns host hardware information
	NodeGetInfo() (model [32]int8, memory uint64, cpus int32, mhz int32, nodes int32, sockets int32, cores int32, threads int32, err error)

	// ConnectGetCapabilities returns the capabilities XML document
	ConnectGetCapabilities() (string, error)

	// ConnectNumOfDomains counts running domains
	ConnectNumOfDomains() (int32, error)

	// ConnectListDomains returns up to maxids running domain ids
	ConnectListDomains(maxids int32) ([]int32, error)

	// ConnectNumOfDefinedDomains counts defined but inactive domains
	ConnectNumOfDefinedDomains() (int32, error)

	// ConnectListDefinedDomains returns up to maxnames defined domain names
	ConnectListDefinedDomains(maxnames int32) ([]string, error)

	// DomainDefineXML defines a domain from XML
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainCreate starts a defined domain
	DomainCreate(dom libvirt.Domain) error

	// DomainUndefine removes a domain definition
	DomainUndefine(dom libvirt.Domain) error

	// DomainLookupByName looks up a domain by name
	DomainLookupByName(name string) (libvirt.Domain, error)

	// DomainLookupByID looks up a running domain by id
	DomainLookupByID(id int32) (libvirt.Domain, error)

	// DomainLookupByUUID looks up a domain by raw UUID
	DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error)

	// Disconnect closes the hypervisor connection and the transport
	Disconnect() error
}

// Opener opens a native session to the hypervisor at uri.
type Opener func(ctx context.Context, uri string) (Session, error)

// NewOpener returns the default Opener.
//
// If socketPath is empty, the transport is derived from the URI itself
// (local socket, ssh, tcp, tls) by go-libvirt. Otherwise the given local
// socket is dialed and the hypervisor named by the URI is opened over it.
// The timeout bounds the whole open on every transport. If timeout is zero,
// defaults to 5 seconds.
func NewOpener(socketPath string, timeout time.Duration) Opener {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return newOpener(func(uri string) (*libvirt.Libvirt, error) {
		return dial(uri, socketPath, timeout)
	}, timeout)
}

// newOpener runs dialFn in the background and gives up when ctx is done or
// timeout has elapsed.
func newOpener(dialFn func(uri string) (*libvirt.Libvirt, error), timeout time.Duration) Opener {
	return func(ctx context.Context, uri string) (Session, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			l   *libvirt.Libvirt
			err error
		}
		resultCh := make(chan result, 1)

		go func() {
			l, err := dialFn(uri)
			resultCh <- result{l: l, err: err}
		}()

		select {
		case <-ctx.Done():
			// Reap a late session so the socket is not leaked.
			go func() {
				if res := <-resultCh; res.l != nil {
					_ = res.l.Disconnect()
				}
			}()
			return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
		case res := <-resultCh:
			if res.err != nil {
				return nil, res.err
			}
			return res.l, nil
		}
	}
}

func dial(uri, socketPath string, timeout time.Duration) (*libvirt.Libvirt, error) {
	if socketPath == "" {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid libvirt URI %q: %w", uri, err)
		}
		l, err := libvirt.ConnectToURI(u)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", uri, err)
		}
		return l, nil
	}

	dialer := dialers.NewLocal(
		dialers.WithSocket(socketPath),
		dialers.WithLocalTimeout(timeout),
	)

	l := libvirt.NewWithDialer(dialer)
	if err := l.ConnectToURI(libvirt.ConnectURI(uri)); err != nil {
		return nil, fmt.Errorf("failed to connect to %s via %s: %w", uri, socketPath, err)
	}

	return l, nil
}

func isNativeNotFound(err error) bool {
	return libvirt.IsNotFound(err)
}
