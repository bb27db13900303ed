package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserInfo struct {
	fs   *afero.Afero
	base string
}

func newFakeUserInfo(fs *afero.Afero) *fakeUserInfo {
	return &fakeUserInfo{fs: fs, base: "/home/test"}
}

func (u *fakeUserInfo) UserID() (string, error)  { return "1000", nil }
func (u *fakeUserInfo) HomeDir() (string, error) { return u.base, nil }
func (u *fakeUserInfo) Cwd() (string, error)     { return u.base, nil }
func (u *fakeUserInfo) IsRoot() (bool, error)    { return false, nil }

func (u *fakeUserInfo) TractionConfigDir() (string, error) {
	return u.mkdir(filepath.Join(u.base, ".config", "traction"))
}

func (u *fakeUserInfo) TractionDataDir() (string, error) {
	return u.mkdir(filepath.Join(u.base, ".local", "share", "traction"))
}

func (u *fakeUserInfo) TractionLogDir() (string, error) {
	return u.mkdir(filepath.Join(u.base, ".local", "state", "traction"))
}

func (u *fakeUserInfo) TractionRuntimeDir() (string, error) {
	return u.mkdir(filepath.Join("/run", "traction"))
}

func (u *fakeUserInfo) mkdir(dir string) (string, error) {
	if err := u.fs.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func newTestStore(t *testing.T) (*Store, *afero.Afero) {
	t.Helper()
	fs := &afero.Afero{Fs: afero.NewMemMapFs()}
	return NewStore(fs, newFakeUserInfo(fs)), fs
}

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	store, _ := newTestStore(t)

	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Escalation.PatternAfter.Std())
	assert.Equal(t, 60*time.Minute, cfg.Escalation.AccountabilityAfter.Std())
	assert.Equal(t, "abandon", cfg.Closure.DefaultDisposition)
	assert.Equal(t, 0.8, cfg.Report.StreakThreshold)
	assert.Equal(t, "/home/test/.local/share/traction/traction.db", cfg.Database.Path)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	store, fs := newTestStore(t)

	content := []byte(`
escalation:
  pattern_after: 10m
  accountability_after: 20m
closure:
  default_disposition: defer
`)
	require.NoError(t, fs.WriteFile("/home/test/.config/traction/config.yaml", content, 0600))

	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Escalation.PatternAfter.Std())
	assert.Equal(t, 20*time.Minute, cfg.Escalation.AccountabilityAfter.Std())
	assert.Equal(t, "defer", cfg.Closure.DefaultDisposition)
	assert.Equal(t, 0.8, cfg.Report.StreakThreshold)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "disposition out of set",
			content: `
closure:
  default_disposition: ignore
`,
			wantErr: "default_disposition",
		},
		{
			name: "accountability before pattern",
			content: `
escalation:
  pattern_after: 1h
  accountability_after: 30m
`,
			wantErr: "accountability_after",
		},
		{
			name: "streak threshold above one",
			content: `
report:
  streak_threshold: 1.5
`,
			wantErr: "streak_threshold",
		},
		{
			name: "malformed duration",
			content: `
escalation:
  pattern_after: soon
`,
			wantErr: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, fs := newTestStore(t)
			require.NoError(t, fs.WriteFile("/home/test/.config/traction/config.yaml", []byte(tt.content), 0600))

			_, err := store.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	cfg, err := store.Load()
	require.NoError(t, err)

	cfg.Escalation.PatternAfter = Duration(45 * time.Minute)
	cfg.Escalation.AccountabilityAfter = Duration(90 * time.Minute)
	cfg.Server.Listen = "0.0.0.0:9000"
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, loaded.Escalation.PatternAfter.Std())
	assert.Equal(t, 90*time.Minute, loaded.Escalation.AccountabilityAfter.Std())
	assert.Equal(t, "0.0.0.0:9000", loaded.Server.Listen)
}
