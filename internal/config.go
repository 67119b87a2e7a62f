package internal

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tuannm99/novapage/internal/disk"
	"github.com/tuannm99/novapage/internal/replacer"
)

const envPrefix = "NOVAPAGE"

type NovaPageConfig struct {
	AppName string `mapstructure:"app_name"`

	Replacer struct {
		Policy   string `mapstructure:"policy"`
		Capacity int    `mapstructure:"capacity"`
		K        int    `mapstructure:"k"`
	} `mapstructure:"replacer"`

	Disk struct {
		Mode            string `mapstructure:"mode"`
		Workdir         string `mapstructure:"workdir"`
		Base            string `mapstructure:"base"`
		PagesPerSegment int    `mapstructure:"pages_per_segment"`
	} `mapstructure:"disk"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Debug struct {
		DeadlockDetection bool `mapstructure:"deadlock_detection"`
	} `mapstructure:"debug"`

	Sim struct {
		Pages      int     `mapstructure:"pages"`
		Accesses   int     `mapstructure:"accesses"`
		Workers    int     `mapstructure:"workers"`
		Skew       float64 `mapstructure:"skew"`
		WriteRatio float64 `mapstructure:"write_ratio"`
		Seed       int64   `mapstructure:"seed"`
	} `mapstructure:"sim"`
}

var defaults = map[string]any{
	"app_name":                 "novapage",
	"replacer.policy":          string(replacer.PolicyLRUK),
	"replacer.capacity":        64,
	"replacer.k":               2,
	"disk.mode":                string(disk.ModeMemory),
	"disk.workdir":             "./data",
	"disk.base":                "pages",
	"disk.pages_per_segment":   0,
	"log.level":                "info",
	"log.format":               "text",
	"debug.deadlock_detection": false,
	"sim.pages":                1024,
	"sim.accesses":             100000,
	"sim.workers":              4,
	"sim.skew":                 1.1,
	"sim.write_ratio":          0.2,
	"sim.seed":                 1,
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"policy":    "replacer.policy",
	"frames":    "replacer.capacity",
	"k":         "replacer.k",
	"disk-mode": "disk.mode",
	"data-dir":  "disk.workdir",
	"log-level": "log.level",
	"pages":     "sim.pages",
	"accesses":  "sim.accesses",
	"workers":   "sim.workers",
	"seed":      "sim.seed",
}

// RegisterFlags declares the flags LoadConfig knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("policy", "", "replacement policy (lru-k, clock)")
	fs.Int("frames", 0, "number of buffer frames")
	fs.Int("k", 0, "history depth for lru-k")
	fs.String("disk-mode", "", "page store (file, memory)")
	fs.String("data-dir", "", "working directory for file stores")
	fs.String("log-level", "", "log level")
	fs.Int("pages", 0, "distinct pages in the simulated workload")
	fs.Int("accesses", 0, "page accesses to simulate")
	fs.Int("workers", 0, "concurrent simulated clients")
	fs.Int64("seed", 0, "workload random seed")
}

// LoadConfig reads path (yaml) when given, then applies NOVAPAGE_* environment
// variables and any flag in fs that was explicitly set.
func LoadConfig(path string, fs *pflag.FlagSet) (*NovaPageConfig, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind flag %s", name)
			}
		}
	}

	var cfg NovaPageConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *NovaPageConfig) Validate() error {
	if _, err := replacer.ParsePolicy(c.Replacer.Policy); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := disk.ParseMode(c.Disk.Mode); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.Replacer.Capacity <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "replacer.capacity must be positive, got %d", c.Replacer.Capacity)
	}
	if c.Replacer.K <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "replacer.k must be positive, got %d", c.Replacer.K)
	}
	if c.Sim.Skew <= 1 {
		return errors.Wrapf(ErrInvalidConfig, "sim.skew must be greater than 1, got %v", c.Sim.Skew)
	}
	if c.Sim.WriteRatio < 0 || c.Sim.WriteRatio > 1 {
		return errors.Wrapf(ErrInvalidConfig, "sim.write_ratio must be within [0, 1], got %v", c.Sim.WriteRatio)
	}
	if c.Sim.Pages <= 0 || c.Sim.Workers <= 0 || c.Sim.Accesses < 0 {
		return errors.Wrap(ErrInvalidConfig, "sim.pages and sim.workers must be positive")
	}
	return nil
}
