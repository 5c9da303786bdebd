package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Environment names accepted in APP_ENV / env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config captures everything the shell needs at startup.
type Config struct {
	Env         string
	Scheme      string
	APIURL      string
	WebURL      string
	ProjectID   string
	ControlBind string
	DataDir     string
	LogFile     string
	LogLevel    string

	// StorageSecret seeds the secure store key. Empty uses the install id alone.
	StorageSecret string

	// BridgeOrigins lists extra origin host patterns allowed on the web view
	// bridge besides the host of WebURL.
	BridgeOrigins []string

	Device Device
}

// Device configures the local stand-in for the native platform.
type Device struct {
	Physical           bool
	PushPermission     string
	LocationPermission string
	CameraPermission   string
	LibraryPermission  string
	PromptAnswer       string
	Latitude           float64
	Longitude          float64
	SampleImage        string
}

const (
	defaultConfigPath  = "~/.config/took/config.toml"
	defaultDataDir     = "~/.local/share/took"
	defaultScheme      = "took"
	defaultAPIURL      = "https://api.even-took.com"
	defaultWebURL      = "https://www.even-took.com"
	defaultProjectID   = "6380c63b-460c-43e1-a60a-3ca4f004da3d"
	defaultControlBind = "127.0.0.1:7531"
	defaultLogLevel    = "info"

	permissionUndetermined = "undetermined"
)

type rawConfig struct {
	Env         string    `toml:"env"`
	Scheme      string    `toml:"scheme"`
	APIURL      string    `toml:"api_url"`
	WebURL      string    `toml:"web_url"`
	ProjectID   string    `toml:"project_id"`
	ControlBind string    `toml:"control_bind"`
	DataDir     string    `toml:"data_dir"`
	LogFile     string    `toml:"log_file"`
	LogLevel    string    `toml:"log_level"`
	Device      rawDevice `toml:"device"`
	Bridge      rawBridge `toml:"bridge"`
}

type rawBridge struct {
	Origins []string `toml:"origins"`
}

type rawDevice struct {
	Physical           *bool   `toml:"physical"`
	PushPermission     string  `toml:"push_permission"`
	LocationPermission string  `toml:"location_permission"`
	CameraPermission   string  `toml:"camera_permission"`
	LibraryPermission  string  `toml:"library_permission"`
	PromptAnswer       string  `toml:"prompt_answer"`
	Latitude           float64 `toml:"latitude"`
	Longitude          float64 `toml:"longitude"`
	SampleImage        string  `toml:"sample_image"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Env:         EnvDevelopment,
		Scheme:      defaultScheme,
		APIURL:      defaultAPIURL,
		WebURL:      defaultWebURL,
		ProjectID:   defaultProjectID,
		ControlBind: defaultControlBind,
		DataDir:     mustExpand(defaultDataDir),
		LogLevel:    defaultLogLevel,
		Device: Device{
			Physical:           true,
			PushPermission:     permissionUndetermined,
			LocationPermission: permissionUndetermined,
			CameraPermission:   permissionUndetermined,
			LibraryPermission:  permissionUndetermined,
			PromptAnswer:       "granted",
			Latitude:           37.5665,
			Longitude:          126.9780,
		},
	}
}

// Load locates and parses the config file, falling back to defaults when
// missing, then applies .env and environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	data, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		var raw rawConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.merge(raw)
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func (c *Config) merge(raw rawConfig) {
	setIfPresent(&c.Env, raw.Env)
	setIfPresent(&c.Scheme, raw.Scheme)
	setIfPresent(&c.APIURL, raw.APIURL)
	setIfPresent(&c.WebURL, raw.WebURL)
	setIfPresent(&c.ProjectID, raw.ProjectID)
	setIfPresent(&c.ControlBind, raw.ControlBind)
	setIfPresent(&c.DataDir, raw.DataDir)
	setIfPresent(&c.LogFile, raw.LogFile)
	setIfPresent(&c.LogLevel, raw.LogLevel)
	for _, origin := range raw.Bridge.Origins {
		if o := strings.TrimSpace(origin); o != "" {
			c.BridgeOrigins = append(c.BridgeOrigins, o)
		}
	}

	d := raw.Device
	if d.Physical != nil {
		c.Device.Physical = *d.Physical
	}
	setIfPresent(&c.Device.PushPermission, d.PushPermission)
	setIfPresent(&c.Device.LocationPermission, d.LocationPermission)
	setIfPresent(&c.Device.CameraPermission, d.CameraPermission)
	setIfPresent(&c.Device.LibraryPermission, d.LibraryPermission)
	setIfPresent(&c.Device.PromptAnswer, d.PromptAnswer)
	setIfPresent(&c.Device.SampleImage, d.SampleImage)
	if d.Latitude != 0 || d.Longitude != 0 {
		c.Device.Latitude = d.Latitude
		c.Device.Longitude = d.Longitude
	}
}

func (c *Config) applyEnv() {
	setIfPresent(&c.Env, os.Getenv("APP_ENV"))
	setIfPresent(&c.APIURL, os.Getenv("TOOK_API_URL"))
	setIfPresent(&c.WebURL, os.Getenv("TOOK_WEB_URL"))
	setIfPresent(&c.ProjectID, os.Getenv("TOOK_PROJECT_ID"))
	setIfPresent(&c.ControlBind, os.Getenv("TOOK_CONTROL_BIND"))
	setIfPresent(&c.StorageSecret, os.Getenv("TOOK_STORAGE_SECRET"))
	setIfPresent(&c.LogLevel, os.Getenv("TOOK_LOG_LEVEL"))
	setIfPresent(&c.LogFile, os.Getenv("TOOK_LOG_FILE"))
	if raw := strings.TrimSpace(os.Getenv("TOOK_DEVICE_PHYSICAL")); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			c.Device.Physical = b
		}
	}
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(c.Env)
	if c.Env != EnvProduction {
		c.Env = EnvDevelopment
	}
	c.Scheme = strings.TrimSuffix(c.Scheme, "://")
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.WebURL = strings.TrimRight(c.WebURL, "/")
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.DataDir = mustExpand(c.DataDir)
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "logs", "took.log")
	}
	c.LogFile = mustExpand(c.LogFile)
	if c.Device.SampleImage != "" {
		c.Device.SampleImage = mustExpand(c.Device.SampleImage)
	}
}

// IsProduction reports whether the shell runs against the production backend.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// StoragePath returns the sealed key-value store location.
func (c Config) StoragePath() string {
	return filepath.Join(c.DataDir, "secure.json")
}

// PrefsPath returns the user preferences file location.
func (c Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "prefs.toml")
}

// BridgeOriginPatterns returns the origin host patterns the web view bridge
// accepts: the host of WebURL followed by BridgeOrigins, without duplicates.
func (c Config) BridgeOriginPatterns() []string {
	var patterns []string
	seen := map[string]bool{}
	add := func(p string) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	if u, err := url.Parse(c.WebURL); err == nil {
		add(u.Host)
	}
	for _, o := range c.BridgeOrigins {
		add(o)
	}
	return patterns
}

// ControlURL returns the base URL of the local control API.
func (c Config) ControlURL() string {
	return "http://" + c.ControlBind
}

func setIfPresent(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
