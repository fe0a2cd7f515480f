package config

import (
	"os"
	"testing"

	"badugi-server/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestInstance(t *testing.T) {
	defer util.SetEnv("BADUGI_CONFIG_FILE", "testdata/config.yaml")()
	defer util.SetEnv("BADUGI_JWT_SECRET", "env-secret")()
	config = Config{}

	a := assert.New(t)
	cfg := Instance()
	a.Equal("http://auth.local/api/check/user", cfg.Auth.UserCheckURL)
	a.Equal(45, cfg.Game.TurnTimeLimit)
	a.Equal([]string{"https://play.example.com"}, cfg.CORS.Origins)
	a.Equal("debug", cfg.Log.Level)

	// environment beats the file
	a.Equal("env-secret", cfg.JWT.Secret)

	// unset keys keep their defaults
	a.Equal(100000, cfg.Game.DefaultChips)

	// ensure that it's only loaded once
	_ = os.Setenv("BADUGI_JWT_SECRET", "other-secret")
	// ensure we aren't using a pointer
	cfg.JWT.Secret = "bad"
	cfg = Instance()
	a.Equal("env-secret", cfg.JWT.Secret)
}

func TestDefaults(t *testing.T) {
	defer util.SetEnv("BADUGI_CONFIG_FILE", "testdata/does-not-exist.yaml")()
	config = Config{}

	a := assert.New(t)
	a.NoError(Load())

	cfg := Instance()
	a.Equal(30, cfg.Game.TurnTimeLimit)
	a.Equal(100000, cfg.Game.DefaultChips)
	a.Equal([]string{"*"}, cfg.CORS.Origins)
	a.Equal("info", cfg.Log.Level)
}
