// Package config loads server configuration from an optional YAML file
// with environment overrides.
package config

import (
	"os"

	"badugi-server/internal/util"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config provides configuration for the badugi server
type Config struct {
	loaded bool

	JWT struct {
		// Secret is the HMAC key user tokens are signed with
		Secret string `yaml:"secret" envconfig:"secret"`
	}

	Auth struct {
		UserCheckURL  string `yaml:"userCheckUrl" envconfig:"user_check_url"`
		RobotCheckURL string `yaml:"robotCheckUrl" envconfig:"robot_check_url"`
	}

	Game struct {
		// TurnTimeLimit is the seconds a player has to act
		TurnTimeLimit int `yaml:"turnTimeLimit" envconfig:"turn_time_limit"`

		// DefaultChips is the starting stack for joining players
		DefaultChips int `yaml:"defaultChips" envconfig:"default_chips"`
	}

	CORS struct {
		Origins []string `yaml:"origins" envconfig:"origins"`
	} `yaml:"cors"`

	Log struct {
		Level             string `yaml:"level" envconfig:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	}
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present
func DefaultConfig() Config {
	var c Config
	c.Auth.UserCheckURL = "http://localhost:8000/api/check/user"
	c.Auth.RobotCheckURL = "http://localhost:8000/api/check/robot"
	c.Game.TurnTimeLimit = 30
	c.Game.DefaultChips = 100000
	c.CORS.Origins = []string{"*"}
	c.Log.Level = "info"
	return c
}

var config Config

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration. A missing config file is not an
// error; the defaults plus environment overrides apply.
func Load() error {
	config = DefaultConfig()

	configFile := util.Getenv("BADUGI_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := envconfig.Process("badugi", &config); err != nil {
		return err
	}

	config.loaded = true
	return nil
}
