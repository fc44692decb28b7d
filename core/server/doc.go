// Package server holds configuration for the HTTP API server.
package server
