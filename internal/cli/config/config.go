// Package config holds the CLI's settings and saved session.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

const (
	KeyBaseURL     = "api.base_url"
	KeyTimeout     = "api.timeout"
	KeyOutput      = "output.format"
	KeyLogLevel    = "log.level"
	KeyLogFile     = "log.file"
	KeySearchDelay = "search.debounce_ms"
)

var (
	v               = viper.New()
	configDir       string
	configFilePath  string
	credentialsPath string
)

// Dir returns ~/.config/showcase (or the platform equivalent).
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "showcase"), nil
}

// Init loads config.toml from configPath, or from Dir() when empty. SHOWCASE_*
// environment variables override the file, e.g. SHOWCASE_API_BASE_URL.
func Init(configPath string) error {
	v = viper.New()
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		configDir = dir
		configFilePath = filepath.Join(dir, "config.toml")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}
	credentialsPath = filepath.Join(configDir, "credentials")

	v.SetConfigType("toml")
	v.SetConfigFile(configFilePath)
	v.SetEnvPrefix("SHOWCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults()

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func setDefaults() {
	v.SetDefault(KeyBaseURL, "http://localhost:8787")
	v.SetDefault(KeyTimeout, 30)
	v.SetDefault(KeyOutput, "text")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeySearchDelay, 500)
}

func GetString(key string) string { return v.GetString(key) }
func GetInt(key string) int       { return v.GetInt(key) }

// Timeout is the per-request HTTP timeout.
func Timeout() time.Duration {
	return time.Duration(GetInt(KeyTimeout)) * time.Second
}

// Set overrides a value for this run without touching the file.
func Set(key string, value any) { v.Set(key, value) }

// Save writes a value to config.toml.
func Save(key string, value any) error {
	v.Set(key, value)
	return v.WriteConfigAs(configFilePath)
}

func ConfigDir() string { return configDir }

// Credentials is the session saved by `showcase login`.
type Credentials struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

func (c *Credentials) Valid() bool {
	return c != nil && c.Token != "" && time.Now().Before(c.ExpiresAt)
}

// LoadCredentials returns nil, nil when nobody has logged in yet.
func LoadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func SaveCredentials(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsPath, data, 0o600)
}

func DeleteCredentials() error {
	err := os.Remove(credentialsPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
