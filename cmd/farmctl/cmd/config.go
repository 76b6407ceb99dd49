package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tendant/farmgate/pkg/guard"
)

const (
	configDirName   = ".farmctl"
	configFileName  = "config.toml"
	stateFileName   = "state.db"
	defaultTimeout  = 10 * time.Second
	defaultStateDir = "~/" + configDirName
)

// duration decodes TOML strings such as "30s" or "2m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type guardConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	LockDuration duration `toml:"lock_duration"`
}

// fileConfig mirrors ~/.farmctl/config.toml.
type fileConfig struct {
	AuthURL   string      `toml:"auth_url"`
	AnonKey   string      `toml:"anon_key"`
	Email     string      `toml:"email"`
	StatePath string      `toml:"state_path"`
	Timeout   duration    `toml:"timeout"`
	Guard     guardConfig `toml:"guard"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		StatePath: defaultStateDir + "/" + stateFileName,
		Timeout:   duration{defaultTimeout},
		Guard: guardConfig{
			MaxAttempts:  guard.DefaultMaxAttempts,
			LockDuration: duration{guard.DefaultLockDuration},
		},
	}
}

// defaultConfigPath returns ~/.farmctl/config.toml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// loadConfig reads path over the defaults. A missing file is not an error
// unless required is set; unknown keys are.
func loadConfig(path string, required bool) (*fileConfig, error) {
	cfg := defaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	return cfg, nil
}

func (c *fileConfig) policy() guard.Policy {
	return guard.Policy{
		MaxAttempts:  c.Guard.MaxAttempts,
		LockDuration: c.Guard.LockDuration.Duration,
	}
}

func (c *fileConfig) validate() error {
	if c.AuthURL == "" {
		return errors.New("auth_url is required (set it in the config file or pass --auth-url)")
	}
	if c.AnonKey == "" {
		return errors.New("anon_key is required (set it in the config file or pass --anon-key)")
	}
	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
