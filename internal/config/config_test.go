package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  environment: test
  port: "8080"
  base_url: localhost:8080
  public_url: http://localhost:3000
  jwt_signing_key: secret
  allowed_cors_domains:
    - http://localhost:3000
gin:
  mode: test
storage:
  driver: memory
cache:
  backend: memory
  ttls:
    event_list: 45s
    qr_image: 20m
broadcast:
  send_timeout: 500ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, conf.API.AllowedCORSDomains)
	assert.Equal(t, StorageDriverMemory, conf.Storage.Driver)
	assert.Equal(t, 45*time.Second, conf.Cache.TTLs["event_list"])
	assert.Equal(t, 20*time.Minute, conf.Cache.TTLs["qr_image"])
	assert.Equal(t, 500*time.Millisecond, conf.Broadcast.SendTimeout)
	assert.Equal(t, 15*time.Second, conf.Broadcast.HeartbeatInterval)
	assert.Equal(t, "eventhub", conf.Cache.Namespace)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("API_PORT", "9090")

	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", conf.API.Port)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "api:\n  port: \"80\"\nstorage:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := &PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DB: "events", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=events sslmode=disable", c.DSN())
}

func TestWatch_ReloadsTTLs(t *testing.T) {
	path := writeConfig(t, testConfig)

	reloaded := make(chan *AppConfig, 4)
	err := Watch(path, func(conf *AppConfig, _ fsnotify.Event) {
		select {
		case reloaded <- conf:
		default:
		}
	})
	require.NoError(t, err)

	updated := strings.Replace(testConfig, "event_list: 45s", "event_list: 2m", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	// A single write can surface as several events; wait for the complete file.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case conf := <-reloaded:
			if conf.Cache.TTLs["event_list"] == 2*time.Minute {
				return
			}
		case <-timeout:
			t.Skip("no file notification received, fsnotify may be unsupported here")
		}
	}
}
