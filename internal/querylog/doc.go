// Package querylog records plan requests in a local SQLite database so traffic can
// be replayed and inspected.
package querylog
