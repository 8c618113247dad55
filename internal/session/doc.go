// Package session models the per-cabinet annotation document the editing
// surface reads and writes. Annotations are a closed tagged union serialized
// with a kind tag; geometry round-trips losslessly through save and load.
package session
