// Package wire implements the MessagePack value model and byte-exact
// codec used for every client/server exchange, plus a struct-tag
// based typed decoder (map-by-name or array-by-position) on top of it.
//
// Everything here is written from the MessagePack spec directly: this
// package is the system under study, not a thin wrapper over an
// existing MessagePack library.
package wire
