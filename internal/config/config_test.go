package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

const sample = `
server:
  read_timeout: 3s
kafka:
  enabled: true
  brokers:
    - "kafka:9092"
batch:
  apply_portra: false
  straighten_range: 2
`

func TestMustLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("HTTP_PORT", ":9191")

	cfg := MustLoad(path)

	assert.Equal(t, ":9191", cfg.Server.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(32), cfg.Server.MaxUploadMB)

	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "lumina.batch.run", cfg.Kafka.Topic)
	assert.Equal(t, "lumina.batch.events", cfg.Kafka.EventsTopic)

	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 3, cfg.Retry.Attempts)

	assert.False(t, cfg.Batch.ApplyPortra)
	assert.True(t, cfg.Batch.AutoStraighten)
	assert.Equal(t, 2.0, cfg.Batch.StraightenRange)
	assert.Equal(t, 90, cfg.Batch.JPEGQuality)
	assert.Equal(t, "lumina_batch_photos.zip", cfg.Batch.ArchiveName)

	assert.Equal(t, "lumina-edit.png", cfg.Export.Filename)
	assert.Equal(t, 0.1, cfg.Export.StraightenStep)
}

func TestMustLoadMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
	})
}
