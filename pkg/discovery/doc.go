// Package discovery finds remote consoles on the local network via mDNS.
//
// Lab devices that advertise an SSH or telnet service can be discovered
// without maintaining a host inventory; the browser yields candidate
// addresses that feed directly into connection configuration.
package discovery
