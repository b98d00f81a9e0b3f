// Package inventory gathers read-only views of a hypervisor from an open
// libvirt connection.
//
// The main operations are:
//   - Host: Summarize the hypervisor (driver, version, host name, hardware)
//   - List: List running and/or defined domains
//
// Both accept the narrow interfaces in interfaces.go so tests can run without
// a libvirt daemon; *libvirt.Connection satisfies them.
package inventory
