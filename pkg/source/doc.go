// Package source provides ambient.EventSource implementations backed by
// external notification systems.
package source
