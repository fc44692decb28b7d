package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteInMemory(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: "file::memory:?cache=shared"})
	require.NoError(t, err)
	require.NotNil(t, db)

	var one int
	err = db.Raw("SELECT 1").Scan(&one).Error
	assert.NoError(t, err)
	assert.Equal(t, 1, one)
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
