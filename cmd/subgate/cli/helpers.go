package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/service"
)

// loadSettings decodes the effective viper settings into a FileConfig and
// validates it.
func loadSettings(v *viper.Viper) (*config.FileConfig, error) {
	cfg := config.DefaultFileConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveDataDir returns the configured data directory or ~/.subgate.
func resolveDataDir(cfg *config.FileConfig) string {
	if cfg.Database.DataDir != "" {
		return cfg.Database.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".subgate")
}

// openStore opens the configured store. SQLite without an explicit DSN lives
// in the data directory; Validate requires a DSN for the other drivers.
func openStore(cfg *config.FileConfig) (*config.Store, error) {
	if cfg.Database.DSN == "" {
		store, err := config.NewStore(resolveDataDir(cfg))
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		return store, nil
	}
	store, err := config.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return store, nil
}

// loadStore is the common prologue of commands that only need the store.
func loadStore() (*config.FileConfig, *config.Store, error) {
	cfg, err := loadSettings(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func newHasher(cfg *config.FileConfig) service.Hasher {
	return service.NewBcryptHasher(cfg.Auth.BcryptCost)
}

// newLogger builds the process logger from the logging settings.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
