// Package storage provides the object storage client used for audit
// artifacts: raw ingested messages and CSV export uploads.
//
// The Client interface wraps the subset of MinIO operations the tracker
// needs, so tests can substitute the testify mock in mocks/.
package storage
