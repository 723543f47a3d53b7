package rto

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Config holds the construction-time knobs spec.md §6.5 names.
type Config struct {
	// Name is appended to goroutine-labeling log fields for
	// debuggability; it has no protocol meaning.
	Name string `yaml:"name"`

	// CallSlots bounds concurrent in-flight calls per direction.
	CallSlots int `yaml:"call_slots"`

	// CallTimeout bounds each call phase (slot acquisition, send,
	// response wait). A negative value means indefinite; zero is
	// replaced by DefaultConfig's value when a Context is constructed.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// MaximumServicesNum bounds the registry.
	MaximumServicesNum int `yaml:"maximum_services_num"`

	// ThreadPool sizes the Server's bounded dispatch pool.
	ThreadPool int `yaml:"thread_pool"`

	// Logger receives dispatch-failure and transport warning log
	// entries. Defaults to logrus.StandardLogger() if nil.
	Logger *logrus.Logger `yaml:"-"`
}

// DefaultConfig returns the Config a Context uses when none is supplied.
func DefaultConfig() Config {
	return Config{
		Name:               "rto",
		CallSlots:          64,
		CallTimeout:        30 * time.Second,
		MaximumServicesNum: 1 << 16,
		ThreadPool:         8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name != "" {
		d.Name = c.Name
	}
	if c.CallSlots > 0 {
		d.CallSlots = c.CallSlots
	}
	if c.CallTimeout != 0 {
		d.CallTimeout = c.CallTimeout
	}
	if c.MaximumServicesNum > 0 {
		d.MaximumServicesNum = c.MaximumServicesNum
	}
	if c.ThreadPool > 0 {
		d.ThreadPool = c.ThreadPool
	}
	if c.Logger != nil {
		d.Logger = c.Logger
	}
	return d
}

// rawConfig mirrors Config for YAML decoding, with CallTimeout as a
// duration string: gopkg.in/yaml.v3 has no built-in time.Duration support,
// so "2s" is parsed explicitly via time.ParseDuration after decoding.
type rawConfig struct {
	Name               string `yaml:"name"`
	CallSlots          int    `yaml:"call_slots"`
	CallTimeout        string `yaml:"call_timeout"`
	MaximumServicesNum int    `yaml:"maximum_services_num"`
	ThreadPool         int    `yaml:"thread_pool"`
}

// LoadConfig reads a YAML config file, the same library gopls uses for its
// on-disk settings (golang.org/x/tools/gopls go.mod: gopkg.in/yaml.v3).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}
	cfg := Config{
		Name:               raw.Name,
		CallSlots:          raw.CallSlots,
		MaximumServicesNum: raw.MaximumServicesNum,
		ThreadPool:         raw.ThreadPool,
	}
	if raw.CallTimeout != "" {
		d, err := time.ParseDuration(raw.CallTimeout)
		if err != nil {
			return Config{}, xerrors.Errorf("rto: call_timeout: %w", err)
		}
		cfg.CallTimeout = d
	}
	return cfg, nil
}
