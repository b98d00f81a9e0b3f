// Package libvirt provides a thin connection and domain wrapper over
// libvirt.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - Connection lifecycle (open, close, scoped use)
//   - Host introspection (type, version, hostname, URI, node info, capabilities)
//   - Domain enumeration, lookup and definition
//
// Every call is one request to libvirtd. Failures are returned as *Error
// values classified by kind, so callers can test them with errors.Is:
//
//	ErrConnection  opening the session failed
//	ErrRetrieve    an introspection, lookup or enumeration call failed
//	ErrDefinition  defining a domain from XML failed
//	ErrSystemCall  closing the session failed
//	ErrCreate      creating a domain failed
//
// Using a connection outside its open lifetime returns ErrNotOpen,
// ErrAlreadyOpen or ErrClosed.
//
// Connection Management:
//
// Prefer WithConnection, which closes the session on every exit path:
//
//	err := libvirt.WithConnection(ctx, "qemu:///system", func(c *libvirt.Connection) error {
//	    host, err := c.Hostname()
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(host)
//	    return nil
//	})
//
// Manual use works as well:
//
//	c := libvirt.NewConnection("test:///default")
//	if _, err := c.Open(); err != nil {
//	    return err
//	}
//	defer c.Close()
//
// Domains:
//
// Domain values are returned by DomainByName, DomainByID, DomainByUUID,
// DefineDomainXML and CreateDomainLinux. They carry the native reference
// only; managing domain state is left to callers through Domain.Native.
package libvirt
