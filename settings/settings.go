// Package settings loads the emulator identity and tuning knobs from
// defaults, an optional settings file, a .env file and EOSEMU_* environment
// variables, in increasing priority.
package settings

import (
	"os"
	"path/filepath"
	"time"

	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
)

// FileName is the settings file looked up next to the game.
const FileName = "NemirtingasEpicEmu.json"

// EnvPrefix prefixes every environment override, e.g. EOSEMU_USERNAME or
// EOSEMU_AUTH_LOGINDELAY.
const EnvPrefix = "EOSEMU"

// AppDataSavePath is the savepath value that resolves to the user config dir.
const AppDataSavePath = "appdata"

// AuthConfig tunes the emulated login.
type AuthConfig struct {
	// LoginDelay postpones the login callback.
	LoginDelay time.Duration `mapstructure:"loginDelay"`

	// LoginTimeout fails a login that has not completed with TimedOut.
	LoginTimeout time.Duration `mapstructure:"loginTimeout"`
}

// P2PConfig tunes the emulated peer-to-peer interface.
type P2PConfig struct {
	// ConnectTimeout closes connection attempts the peer never answers.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

// StorageConfig tunes file transfers.
type StorageConfig struct {
	// MaxChunkBytes caps the chunk size a client may ask for.
	MaxChunkBytes int `mapstructure:"maxChunkBytes"`

	// MaxFileBytes caps the size of a written file.
	MaxFileBytes int64 `mapstructure:"maxFileBytes"`
}

// Settings is the decoded configuration.
type Settings struct {
	EpicID        eos.EpicAccountID `mapstructure:"epicid"`
	Username      string            `mapstructure:"username"`
	Language      string            `mapstructure:"language"`
	GameName      string            `mapstructure:"gamename"`
	UnlockDLCs    bool              `mapstructure:"unlock_dlcs"`
	EnableOverlay bool              `mapstructure:"enable_overlay"`
	SavePath      string            `mapstructure:"savepath"`

	// DLCs lists the catalog items owned when UnlockDLCs is off.
	DLCs []string `mapstructure:"dlcs"`

	Log     log.LogCfg             `mapstructure:"log"`
	Auth    AuthConfig             `mapstructure:"auth"`
	P2P     P2PConfig              `mapstructure:"p2p"`
	Storage StorageConfig          `mapstructure:"storage"`
	Network network.EndpointConfig `mapstructure:"network"`

	// Plugin is handed to plugin.Manager: type -> implementation -> config.
	Plugin map[string]any `mapstructure:"plugin"`
}

// Default values, keyed by settings path.
var defaults = map[string]any{
	"epicid":         "0123456789ABCDEF0123456789ABCDEF",
	"username":       "DefaultName",
	"language":       "english",
	"gamename":       "Unreal",
	"unlock_dlcs":    true,
	"enable_overlay": true,
	"savepath":       AppDataSavePath,
	"dlcs":           []string{},

	"log.path":              "./eosemu.log",
	"log.level":             "info",
	"log.splitMB":           50,
	"log.callerSkip":        0,
	"log.fileAppender":      false,
	"log.consoleAppender":   true,
	"log.enabledCallerInfo": true,

	"auth.loginDelay":   time.Second,
	"auth.loginTimeout": 10 * time.Second,

	"p2p.connectTimeout": 15 * time.Second,

	"storage.maxChunkBytes": 4 * 1024 * 1024,
	"storage.maxFileBytes":  200 * 1024 * 1024,

	"network.recvRate":  0,
	"network.recvBurst": 0,
	"network.maxInbox":  4096,

	"plugin.storage.os.tag": "default",
}

// SaveDir resolves SavePath. The "appdata" value maps to the per-user config
// directory, falling back to the working directory.
func (s *Settings) SaveDir() string {
	if s.SavePath != AppDataSavePath && s.SavePath != "" {
		return filepath.Clean(s.SavePath)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "NemirtingasEpicEmu")
	}
	return "NemirtingasEpicEmu"
}

// UserDir is where per-user, per-game data lives.
func (s *Settings) UserDir() string {
	return filepath.Join(s.SaveDir(), string(s.EpicID), s.GameName)
}

// Clone returns a copy that does not share slices or maps with s.
func (s *Settings) Clone() *Settings {
	cp := *s
	cp.DLCs = append([]string(nil), s.DLCs...)
	if s.Plugin != nil {
		cp.Plugin = make(map[string]any, len(s.Plugin))
		for k, v := range s.Plugin {
			cp.Plugin[k] = v
		}
	}
	return &cp
}

// normalize fixes values a hand-edited file may get wrong.
func (s *Settings) normalize() {
	if id, ok := eos.ParseEpicAccountID(string(s.EpicID)); ok {
		s.EpicID = id
	} else {
		s.EpicID = eos.NewEpicAccountID()
		log.Warn().Str("epicid", string(s.EpicID)).Msg("invalid epicid in settings, generated a new one")
	}
	if s.Username == "" {
		s.Username = "DefaultName"
	}
	if s.GameName == "" {
		s.GameName = "Unreal"
	}
	if s.Language == "" {
		s.Language = "english"
	}
}
