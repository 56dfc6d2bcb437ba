package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, time.Hour, c.Login.TicketTTL)
	assert.Equal(t, 10000, c.Login.TicketCapacity)
	assert.Equal(t, "/ws", c.Server.WsPath)
	assert.Equal(t, "HS256", c.JWT.Alg)
	assert.Equal(t, 500, c.Message.TextMaxLen)
	assert.Contains(t, c.Message.ImageExts, "png")
}

func TestLoad_YAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_id: 12
server:
  addr: ":9000"
  idle_timeout: 2m
login:
  ticket_ttl: 30m
  ticket_capacity: 50
kafka:
  brokers: ["k1:9092", "k2:9092"]
message:
  banned_words: ["spam"]
`), 0o600))

	t.Setenv("TALKTIME_LOGIN__TICKET_CAPACITY", "77")
	t.Setenv("TALKTIME_NATS__SERVERS", "nats://a:4222,nats://b:4222")
	t.Setenv("TALKTIME_NATS__ENABLED", "true")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(12), c.NodeID)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 2*time.Minute, c.Server.IdleTimeout)
	assert.Equal(t, 30*time.Minute, c.Login.TicketTTL)
	assert.Equal(t, 77, c.Login.TicketCapacity)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, c.Nats.Servers)
	assert.True(t, c.Nats.Enabled)
	assert.Equal(t, []string{"spam"}, c.Message.BannedWords)
	// untouched sections still get defaults
	assert.Equal(t, 3*time.Second, c.Login.CollaboratorTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOverlayEnv_IgnoresForeignVars(t *testing.T) {
	raw := map[string]any{}
	overlayEnv(raw, []string{"HOME=/root", "TALKTIME_LOG__LEVEL=warn", "TALKTIME_=x"})

	assert.Equal(t, map[string]any{"log": map[string]any{"level": "warn"}}, raw)
}
