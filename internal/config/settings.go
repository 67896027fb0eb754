package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/vanpelt/rpsh/internal/models"
	"gopkg.in/yaml.v2"
)

// Settings is the client configuration. Values are layered: defaults, then the
// YAML file, then RPSH_* environment variables, then command line flags.
type Settings struct {
	// URL is the page the provisioning server is mounted at, e.g. http://host:4200/
	URL      string `yaml:"url" envconfig:"RPSH_URL"`
	Hostname string `yaml:"hostname" envconfig:"RPSH_HOSTNAME"`
	Port     string `yaml:"port" envconfig:"RPSH_PORT"`
	Username string `yaml:"username" envconfig:"RPSH_USERNAME"`
	// Password is never read from the config file
	Password string `yaml:"-" envconfig:"RPSH_PASSWORD"`
	KeyFile  string `yaml:"key_file" envconfig:"RPSH_KEY_FILE"`

	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"RPSH_REQUEST_TIMEOUT"`
	DialTimeout     time.Duration `yaml:"dial_timeout" envconfig:"RPSH_DIAL_TIMEOUT"`
	ErrorCloseGrace time.Duration `yaml:"error_close_grace" envconfig:"RPSH_ERROR_CLOSE_GRACE"`
	FitDelay        time.Duration `yaml:"fit_delay" envconfig:"RPSH_FIT_DELAY"`
	Insecure        bool          `yaml:"insecure_skip_verify" envconfig:"RPSH_INSECURE"`

	LogLevel string `yaml:"log_level" envconfig:"RPSH_LOG_LEVEL"`
	LogFile  string `yaml:"log_file" envconfig:"RPSH_LOG_FILE"`
}

// Defaults returns the built-in settings
func Defaults() Settings {
	return Settings{
		URL:             "http://localhost:4200/",
		Port:            "22",
		RequestTimeout:  30 * time.Second,
		DialTimeout:     10 * time.Second,
		ErrorCloseGrace: 2 * time.Second,
		FitDelay:        50 * time.Millisecond,
		LogLevel:        "info",
		LogFile:         Runtime.LogFile,
	}
}

// Load builds Settings from defaults, the YAML file at path and the environment.
// A missing file is only an error when required is set.
func Load(path string, required bool) (Settings, error) {
	s := Defaults()

	if path != "" {
		if err := s.mergeFile(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) || required {
				return s, err
			}
		}
	}

	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("failed to read environment: %w", err)
	}

	s.KeyFile = Runtime.ExpandHome(s.KeyFile)
	s.LogFile = Runtime.ExpandHome(s.LogFile)

	return s, s.Validate()
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the client cannot run with
func (s Settings) Validate() error {
	if s.URL == "" {
		return errors.New("url must not be empty")
	}
	if s.RequestTimeout < 0 || s.DialTimeout < 0 || s.ErrorCloseGrace < 0 || s.FitDelay < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// ReadKeyFile loads the configured private key, nil when none is configured
func (s Settings) ReadKeyFile() ([]byte, error) {
	if s.KeyFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(Runtime.ExpandHome(s.KeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return data, nil
}

// Request builds the connection request the settings describe
func (s Settings) Request() (models.ConnectionRequest, error) {
	key, err := s.ReadKeyFile()
	if err != nil {
		return models.ConnectionRequest{}, err
	}
	return models.ConnectionRequest{
		Hostname:   s.Hostname,
		Port:       s.Port,
		Username:   s.Username,
		Password:   s.Password,
		PrivateKey: key,
	}, nil
}
