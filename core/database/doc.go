// Package database provides the GORM database connection for the tracker.
//
// It supports postgres (production default), mysql and sqlite through one
// Connect function driven by configuration. Connection pooling and an initial
// ping with timeout are handled here so callers get a verified handle or an
// error, never a lazily broken one.
package database
