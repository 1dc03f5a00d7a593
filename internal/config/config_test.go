package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
timezone: Europe/Berlin
week_start: Sunday
ics:
  - name: Family
    url: https://example.com/family.ics
    color: "#ff8800"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, time.Sunday, cfg.CalendarConfig().FirstDayOfWeek)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultRefresh, cfg.RefreshCron)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(defaultColorSeed), cfg.ColorSeed)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "Family", cfg.ICS[0].SourceID())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestUnknownWeekStartFallsBack(t *testing.T) {
	cfg := &Config{WeekStart: "someday"}
	cfg.Normalize()
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, time.Monday, cfg.CalendarConfig().FirstDayOfWeek)
}

func TestLocationError(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}
	loc, err := cfg.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.WeekStart = "saturday"
	cfg.ColorSeed = 99
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "work", URL: "https://example.com/w.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ics: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
	assert.Error(t, Save(path, nil))
}

func TestSourceIDFallback(t *testing.T) {
	assert.Equal(t, "id", ICSConfig{ID: "id", Name: "n", URL: "u"}.SourceID())
	assert.Equal(t, "u", ICSConfig{URL: "u"}.SourceID())
}

func TestColorSeedKeepsExplicitValue(t *testing.T) {
	cfg := &Config{ColorSeed: 42}
	cfg.Normalize()
	assert.Equal(t, int64(42), cfg.ColorSeed)

	cfg = &Config{ColorSeed: 0}
	cfg.Normalize()
	assert.Equal(t, int64(defaultColorSeed), cfg.ColorSeed)
}
