package cliutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDatabaseSqlite(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "nested", "incidents.db")
	db, err := SetupDatabase("sqlite://"+path, 10, DatabaseOptions{})
	require.NoError(err)

	var mode string
	require.NoError(db.Raw("PRAGMA journal_mode;").Scan(&mode).Error)
	assert.Equal("wal", mode)

	sqldb, err := db.DB()
	require.NoError(err)
	assert.Equal(1, sqldb.Stats().MaxOpenConnections)
}

func TestSetupDatabaseRejectsUnknownScheme(t *testing.T) {
	_, err := SetupDatabase("mysql://localhost/doxguard", 10, DatabaseOptions{})
	assert.Error(t, err)
}

func TestSetupSlog(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	logger, err := SetupSlog(&buf, LogOptions{LogLevel: "warn", LogFormat: "json"})
	assert.NoError(err)
	logger.Info("hidden")
	logger.Warn("shown", "queue", 3)
	assert.NotContains(buf.String(), "hidden")
	assert.Contains(buf.String(), `"msg":"shown"`)

	_, err = SetupSlog(&buf, LogOptions{LogLevel: "loud"})
	assert.Error(err)
	_, err = SetupSlog(&buf, LogOptions{LogFormat: "xml"})
	assert.Error(err)
}
