package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, "zapticket", cfg.System.Appid)
	assert.Equal(t, 3000, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 64, cfg.Whatsapp.RouterWorkers)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "zapticket.yml")
	data := `
system:
  appid: zapticket
  location: America/Sao_Paulo
  workdir: /tmp/zapticket
web:
  host: 127.0.0.1
  port: 8080
  secret: file-secret
  jwt_expire_hour: 4
database:
  type: sqlite
  name: zapticket
whatsapp:
  print_qr: true
  router_workers: 8
`
	require.NoError(t, os.WriteFile(cfile, []byte(data), 0o644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "file-secret", cfg.Web.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Whatsapp.PrintQR)
	assert.Equal(t, 8, cfg.Whatsapp.RouterWorkers)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("ZAPTICKET_WEB_PORT", "9999")
	t.Setenv("ZAPTICKET_DB_TYPE", "sqlite")
	t.Setenv("ZAPTICKET_WHATSAPP_PRINT_QR", "true")

	cfg := LoadConfig("")
	assert.Equal(t, 9999, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Whatsapp.PrintQR)
}
