// Package storage provides Backend implementations for ambient bindings.
//
// Every backend stores opaque strings under string keys. Encoding of the
// stored value belongs to the binding, not the backend.
package storage
