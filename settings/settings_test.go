package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/log"
)

func TestDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewLoader(Options{Fs: fs, Path: "/game/" + FileName}).Load()
	require.NoError(t, err)

	assert.Equal(t, eos.EpicAccountID("0123456789abcdef0123456789abcdef"), s.EpicID)
	assert.Equal(t, "DefaultName", s.Username)
	assert.Equal(t, "english", s.Language)
	assert.Equal(t, "Unreal", s.GameName)
	assert.True(t, s.UnlockDLCs)
	assert.True(t, s.EnableOverlay)
	assert.Equal(t, AppDataSavePath, s.SavePath)
	assert.Equal(t, log.InfoLevel, s.Log.LogLevel)
	assert.Equal(t, time.Second, s.Auth.LoginDelay)
	assert.Equal(t, 10*time.Second, s.Auth.LoginTimeout)
	assert.Equal(t, 15*time.Second, s.P2P.ConnectTimeout)
	assert.Equal(t, 4096, s.Network.MaxInbox)

	storage, ok := s.Plugin["storage"].(map[string]any)
	require.True(t, ok)
	osCfg, ok := storage["os"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "default", osCfg["tag"])

	exists, _ := afero.Exists(fs, "/game/"+FileName)
	assert.False(t, exists)
}

func TestFileAndEnvOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/game/" + FileName
	require.NoError(t, afero.WriteFile(fs, path, []byte(`{
		"username": "Nemirtingas",
		"epicid": "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
		"unlock_dlcs": false,
		"dlcs": ["dlc_a", "dlc_b"],
		"savepath": "/saves",
		"log": {"level": "debug"},
		"auth": {"loginDelay": "250ms"}
	}`), 0o644))

	t.Setenv("EOSEMU_LANGUAGE", "french")
	t.Setenv("EOSEMU_AUTH_LOGINTIMEOUT", "3s")

	s, err := NewLoader(Options{Fs: fs, Path: path}).Load()
	require.NoError(t, err)

	assert.Equal(t, "Nemirtingas", s.Username)
	assert.Equal(t, eos.EpicAccountID("ffffffffffffffffffffffffffffffff"), s.EpicID)
	assert.False(t, s.UnlockDLCs)
	assert.Equal(t, []string{"dlc_a", "dlc_b"}, s.DLCs)
	assert.Equal(t, log.DebugLevel, s.Log.LogLevel)
	assert.Equal(t, 250*time.Millisecond, s.Auth.LoginDelay)
	assert.Equal(t, 3*time.Second, s.Auth.LoginTimeout)
	assert.Equal(t, "french", s.Language)
	assert.Equal(t, filepath.Clean("/saves"), s.SaveDir())
	assert.Equal(t, filepath.Join("/saves", "ffffffffffffffffffffffffffffffff", "Unreal"), s.UserDir())
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("EOSEMU_GAMENAME=DotEnvGame\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("EOSEMU_GAMENAME") })

	s, err := NewLoader(Options{Fs: afero.NewMemMapFs(), Path: "/x/" + FileName, EnvFile: envFile}).Load()
	require.NoError(t, err)
	assert.Equal(t, "DotEnvGame", s.GameName)

	_, err = NewLoader(Options{Fs: afero.NewMemMapFs(), EnvFile: filepath.Join(dir, "missing.env")}).Load()
	assert.NoError(t, err, "missing env file is ignored")
}

func TestInvalidEpicIDIsReplaced(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, FileName, []byte(`{"epicid": "not-hex"}`), 0o644))

	s, err := NewLoader(Options{Fs: fs}).Load()
	require.NoError(t, err)
	assert.True(t, s.EpicID.Valid())
	assert.NotEqual(t, eos.EpicAccountID("not-hex"), s.EpicID)
}

func TestBrokenFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, FileName, []byte(`{"username": `), 0o644))

	_, err := NewLoader(Options{Fs: fs}).Load()
	assert.ErrorIs(t, err, ErrLoad)
}

func TestCreateIfMissingAndSet(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/" + FileName
	l := NewLoader(Options{Fs: fs, Path: path, CreateIfMissing: true})
	_, err := l.Load()
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DefaultName")

	s, err := l.Set("username", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", s.Username)
	assert.Equal(t, "Renamed", l.Current().Username)

	s.DLCs = append(s.DLCs, "mutated")
	assert.Empty(t, l.Current().DLCs, "callers get copies")
}

func TestWatchPublishesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "before"}`), 0o644))

	l := NewLoader(Options{Path: path})
	s, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "before", s.Username)

	pub := event.NewPublisher()
	require.NoError(t, pub.NewTopic(event.ReloadConfig, time.Second))
	got := make(chan *Settings, 4)
	require.NoError(t, pub.RegisterSubscriber(event.ReloadConfig, func(param any) {
		got <- param.(*Settings)
	}))

	l.Watch(pub)
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "after"}`), 0o644))

	select {
	case s := <-got:
		assert.Equal(t, "after", s.Username)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	assert.Equal(t, "after", l.Current().Username)
}
