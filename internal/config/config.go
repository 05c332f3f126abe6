package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ecohydro/rhessysflow/internal/paths"
)

// EnvConfigFile names the environment variable consulted when no config file
// is given on the command line.
const EnvConfigFile = "ECOHYDROWORKFLOW_CFG"

// ErrNoGISBase is returned by Validate when no GRASS installation is configured.
var ErrNoGISBase = errors.New("configuration does not define grass.gisbase (set it in the config file or export GISBASE)")

// Config represents the workflow configuration shared by rhessysflow commands.
type Config struct {
	GRASS   GRASSConfig   `yaml:"grass"`
	RHESSys RHESSysConfig `yaml:"rhessys"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

// GRASSConfig locates the GRASS GIS installation.
type GRASSConfig struct {
	GISBase string `yaml:"gisbase"`
}

// RHESSysConfig holds RHESSys settings consumed by other workflow steps.
type RHESSysConfig struct {
	PathOfParamDB string `yaml:"path_of_paramdb"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		GRASS: GRASSConfig{
			GISBase: strings.TrimSpace(os.Getenv("GISBASE")),
		},
	}
}

// ResolvePath picks the config file to read: an explicit path first, then
// ECOHYDROWORKFLOW_CFG, then the user config file. explicit reports whether
// the returned path was named by the caller or the environment, in which case
// it must exist.
func ResolvePath(flagPath string) (path string, explicit bool) {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p, true
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigFile)); env != "" {
		return env, true
	}
	return paths.ConfigFile(), false
}

// Load reads configuration from the path chosen by ResolvePath. A missing
// implicit user config falls back to defaults; a missing explicit one is an error.
func Load(flagPath string) (Config, error) {
	path, explicit := ResolvePath(flagPath)
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path

	if strings.TrimSpace(cfg.GRASS.GISBase) == "" {
		cfg.GRASS.GISBase = Default().GRASS.GISBase
	}

	return cfg, nil
}

// Validate checks the settings needed to run GRASS commands.
func (c Config) Validate() error {
	if strings.TrimSpace(c.GRASS.GISBase) == "" {
		return ErrNoGISBase
	}
	return nil
}
