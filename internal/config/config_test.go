package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.False(t, cfg.IsDevelopment())

	assert.True(t, cfg.Storage.IsFilesystem())
	assert.False(t, cfg.Storage.IsS3())
	assert.Equal(t, "./data/lfs", cfg.Storage.DataRoot)
	assert.True(t, cfg.Storage.VerifyWrites)

	assert.Equal(t, 2*time.Hour, cfg.Tokens.TTL())
	assert.Equal(t, 24, cfg.Tokens.PasswordLength)

	assert.Equal(t, "GL_USER", cfg.Gitolite.UserEnv)
	assert.Equal(t, "GL_BINDIR", cfg.Gitolite.BinDirEnv)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9999
  mode: debug
storage:
  type: filesystem
  data_root: /srv/lfs
tokens:
  ttl_seconds: 600
  password_length: 32
repositories:
  - proj/repo
  - other/repo
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "/srv/lfs", cfg.Storage.DataRoot)
	assert.Equal(t, 10*time.Minute, cfg.Tokens.TTL())
	assert.Equal(t, 32, cfg.Tokens.PasswordLength)

	assert.True(t, cfg.AllowsRepository("proj/repo"))
	assert.True(t, cfg.AllowsRepository("other/repo"))
	assert.False(t, cfg.AllowsRepository("proj/repo.git"))
	assert.False(t, cfg.AllowsRepository("secret/repo"))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Type: "filesystem", DataRoot: "./data"},
			Tokens:  TokenConfig{TTLSeconds: 7200, PasswordLength: 24},
		}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Server.Port = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Server.Port = 70000
	assert.Error(t, c.Validate())

	c = valid()
	c.Storage.Type = "carrier-pigeon"
	assert.Error(t, c.Validate())

	c = valid()
	c.Storage.DataRoot = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Storage.Type = "s3"
	assert.Error(t, c.Validate(), "s3 requires a bucket")
	c.Storage.S3Bucket = "lfs-objects"
	assert.Error(t, c.Validate(), "s3 requires a region")
	c.Storage.S3Region = "us-east-1"
	assert.NoError(t, c.Validate())

	c = valid()
	c.Tokens.TTLSeconds = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Tokens.PasswordLength = 8
	assert.Error(t, c.Validate())
}

func TestTokenDirectoryFallback(t *testing.T) {
	tc := TokenConfig{}
	assert.Equal(t, filepath.Join(os.TempDir(), "gitolfs-tokens"), tc.Directory())

	tc.Dir = "/var/lib/gitolfs/tokens"
	assert.Equal(t, "/var/lib/gitolfs/tokens", tc.Directory())
}
