package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// ServiceEnv is read from the process environment of the webhook and worker deployments.
type ServiceEnv struct {
	ConfPath  string `env:"CONF_PATH"`
	RedisHost string `env:"REDIS_SERVICE_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_SERVICE_PORT" envDefault:"6379"`
	RedisDB   int    `env:"REDIS_SERVICE_DB" envDefault:"0"`
}

// LoadServiceEnv parses the service environment.
func LoadServiceEnv() (ServiceEnv, error) {
	var e ServiceEnv
	if err := env.Parse(&e); err != nil {
		return ServiceEnv{}, fmt.Errorf("parsing service environment: %w", err)
	}
	return e, nil
}

// RedisAddr returns host:port.
func (e ServiceEnv) RedisAddr() string {
	return net.JoinHostPort(e.RedisHost, strconv.Itoa(e.RedisPort))
}

// ApplyRedis fills redis settings that conf.yaml left empty.
func (e ServiceEnv) ApplyRedis(cfg *Config) {
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = e.RedisAddr()
		cfg.Redis.DB = e.RedisDB
	}
}
