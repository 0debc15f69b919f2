package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPluginConfig(t *testing.T) {
	path := writeFile(t, `
plugins:
  whois:
    roles: ["111", "222"]
    channels: ["333"]
  presence:
    enabled: false
    schedule: "*/10 * * * *"
    options:
      status: "Serving commands"
`)

	pc, err := LoadPluginConfig(path)
	require.NoError(t, err)

	whois := pc.Plugin("whois")
	assert.Equal(t, []string{"111", "222"}, whois.Roles)
	assert.Equal(t, []string{"333"}, whois.Channels)
	assert.True(t, whois.IsEnabled())

	presence := pc.Plugin("presence")
	assert.False(t, presence.IsEnabled())
	assert.Equal(t, "*/10 * * * *", presence.Schedule)
	assert.Equal(t, "Serving commands", presence.Option("status", "fallback"))
	assert.Equal(t, "fallback", presence.Option("missing", "fallback"))

	assert.True(t, pc.Plugin("unknown").IsEnabled())
}

func TestLoadPluginConfigMissingFile(t *testing.T) {
	pc, err := LoadPluginConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, pc.Plugin("ping").Roles)
}

func TestLoadPluginConfigRejectsBlankIDs(t *testing.T) {
	path := writeFile(t, `
plugins:
  whois:
    roles: ["111", ""]
`)

	_, err := LoadPluginConfig(path)
	assert.ErrorContains(t, err, "plugins.whois.roles")
}

func TestPluginConfigReload(t *testing.T) {
	path := writeFile(t, "plugins:\n  ping:\n    users: [\"1\"]\n")
	pc, err := LoadPluginConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, pc.Plugin("ping").Users)

	require.NoError(t, os.WriteFile(path, []byte("plugins:\n  ping:\n    users: [\"2\"]\n"), 0o644))
	require.NoError(t, pc.Reload())
	assert.Equal(t, []string{"2"}, pc.Plugin("ping").Users)

	require.NoError(t, os.WriteFile(path, []byte("plugins: [broken"), 0o644))
	require.Error(t, pc.Reload())
	assert.Equal(t, []string{"2"}, pc.Plugin("ping").Users, "failed reload keeps previous settings")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Discord: DiscordConfig{Token: "t", AppID: "a"},
			Busy:    BusyConfig{Backend: BusyBackendMemory},
			Bot:     BotConfig{Timezone: "UTC"},
		}
	}

	require.NoError(t, valid().Validate())

	noToken := valid()
	noToken.Discord.Token = ""
	assert.ErrorContains(t, noToken.Validate(), "DISCORD_TOKEN")

	badBackend := valid()
	badBackend.Busy.Backend = "etcd"
	assert.ErrorContains(t, badBackend.Validate(), "BUSY_BACKEND")

	badZone := valid()
	badZone.Bot.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, badZone.Validate(), "TIMEZONE")
}

func TestAdminMention(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.AdminMention())
	cfg.Bot.AdminUserID = "42"
	assert.Equal(t, "<@42>", cfg.AdminMention())
}
