package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/farmgate/pkg/guard"
	"github.com/tendant/farmgate/pkg/kvstore/bbolt"
	bolt "go.etcd.io/bbolt"
)

// guardScope keys this machine's attempt state inside the state file.
const guardScope = "local"

var (
	configPath string
	statePath  string
	authURL    string
	anonKey    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "farmctl",
	Short: "farmctl signs in to the farmgate portal from a terminal",
	Long: `farmctl signs in to the farmgate portal's auth service from a terminal.
Like the browser login page it locks after repeated failures and counts
down until the next attempt is allowed.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.farmctl/config.toml)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "login attempt state file (default ~/.farmctl/state.db)")
	rootCmd.PersistentFlags().StringVar(&authURL, "auth-url", "", "auth service base URL")
	rootCmd.PersistentFlags().StringVar(&anonKey, "anon-key", "", "auth service public API key")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// loadSettings reads the config file and applies flag overrides.
func loadSettings(cmd *cobra.Command) (*fileConfig, error) {
	path, required := configPath, configPath != ""
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := loadConfig(path, required)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("state") {
		cfg.StatePath = statePath
	}
	if flags.Changed("auth-url") {
		cfg.AuthURL = authURL
	}
	if flags.Changed("anon-key") {
		cfg.AnonKey = anonKey
	}
	return cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openGuard opens the bbolt state file and returns the guard for this
// machine. The returned store must be closed by the caller.
func openGuard(cfg *fileConfig, logger *slog.Logger) (*guard.Guard, *bbolt.Store, error) {
	path, err := expandHome(cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}

	store, err := bbolt.NewFromFile(path, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("open state %s: %w", path, err)
	}

	g := guard.Scoped(store, guardScope, cfg.policy(), guard.WithLogger(logger))
	return g, store, nil
}
