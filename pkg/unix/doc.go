// Package unix provides observers for common unix shell interactions and a
// registration source that makes them available on connected devices.
package unix
