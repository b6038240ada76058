package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scenery"
)

// Path is the config file, relative to the process working directory.
const Path = "config/petzy.yaml"

// EnvPrefix namespaces environment overrides, e.g. PETZY_AVATAR_ASSET_PATH.
const EnvPrefix = "PETZY_"

// Config holds everything the petzy binary reads at startup. Values come from the YAML
// file first and environment variables second.
type Config struct {
	Viewer Viewer `yaml:"viewer" envPrefix:"VIEWER_"`
	Avatar Avatar `yaml:"avatar" envPrefix:"AVATAR_"`
	Store  Store  `yaml:"store" envPrefix:"STORE_"`
	Log    Log    `yaml:"log" envPrefix:"LOG_"`
	// Scenes are the teleport destinations.
	Scenes []prefs.SceneAsset `yaml:"scenes"`
	// CurrentUser is the last signed-in username. Blank means anonymous.
	CurrentUser string `yaml:"current_user" env:"USER"`
}

// Viewer configures the window and overlays.
type Viewer struct {
	Title        string `yaml:"title" env:"TITLE"`
	Width        int    `yaml:"width" env:"WIDTH"`
	Height       int    `yaml:"height" env:"HEIGHT"`
	Fullscreen   bool   `yaml:"fullscreen" env:"FULLSCREEN"`
	TargetFPS    int    `yaml:"target_fps" env:"TARGET_FPS"`
	ShowFPS      bool   `yaml:"show_fps" env:"SHOW_FPS"`
	ShowMemAlloc bool   `yaml:"show_memalloc" env:"SHOW_MEMALLOC"`
	ShowStatus   bool   `yaml:"show_status" env:"SHOW_STATUS"`
	// Font is a family name searched under the assets fonts directory. Empty uses the
	// built-in pixel font.
	Font string `yaml:"font" env:"FONT"`
}

// Avatar configures the pet asset and its animation.
type Avatar struct {
	// AssetsDir is the directory local asset paths are resolved under.
	AssetsDir  string        `yaml:"assets_dir" env:"ASSETS_DIR"`
	AssetPath  string        `yaml:"asset_path" env:"ASSET_PATH"`
	ClosedNode string        `yaml:"closed_node" env:"CLOSED_NODE"`
	OpenNode   string        `yaml:"open_node" env:"OPEN_NODE"`
	Cadence    float64       `yaml:"cadence" env:"CADENCE"`
	ColorRate  float64       `yaml:"color_rate" env:"COLOR_RATE"`
	AutoClose  time.Duration `yaml:"auto_close" env:"AUTO_CLOSE"`
	// Watch reloads the asset when the file changes on disk.
	Watch bool `yaml:"watch" env:"WATCH"`
}

// Store configures where user documents live.
type Store struct {
	// URL of a docd server. Empty uses the local SQLite file directly.
	URL          string        `yaml:"url" env:"URL"`
	SQLitePath   string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Listen       string        `yaml:"listen" env:"LISTEN"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// Log configures the log file.
type Log struct {
	Path  string `yaml:"path" env:"PATH"`
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Viewer: Viewer{
			Title:     "Petzy",
			Width:     1280,
			Height:    720,
			TargetFPS: 60,
		},
		Avatar: Avatar{
			AssetsDir: "assets",
			AssetPath: "models/mouth.glb",
			Cadence:   0.005,
			ColorRate: 0.18,
			AutoClose: time.Second,
		},
		Store: Store{
			SQLitePath:   "data/petzy.db",
			Listen:       "127.0.0.1:8787",
			WriteTimeout: 10 * time.Second,
		},
		Log: Log{
			Path:  "logs/petzy.log",
			Level: "info",
		},
		Scenes: append([]prefs.SceneAsset(nil), scenery.Defaults...),
	}
}

// Load reads path and applies PETZY_* environment overrides. A missing file yields
// Default(); a malformed one yields Default() and the parse error so the caller can log it.
func Load(path string) (Config, error) {
	cfg := Default()
	var fileErr error
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		fileErr = fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			cfg = Default()
			fileErr = fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, fileErr
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
