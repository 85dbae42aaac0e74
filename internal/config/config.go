package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendNone   = "none"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Remote     Remote `yaml:"remote"`
	Redis      Redis  `yaml:"redis"`
	Chain      Chain  `yaml:"chain"`
}

// Remote - where room records live; backend none disables remote mode.
type Remote struct {
	Backend    string `yaml:"backend" env:"REMOTE_BACKEND" env-default:"redis"`
	SQLitePath string `yaml:"sqlite-path" env:"REMOTE_SQLITE_PATH" env-default:"rooms.db"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Chain - an empty rpc-url disables on-chain mode; an empty private key leaves the wallet disconnected.
type Chain struct {
	RPCURL         string        `yaml:"rpc-url" env:"CHAIN_RPC_URL"`
	PackageID      string        `yaml:"package-id" env:"CHAIN_PACKAGE_ID"`
	Module         string        `yaml:"module" env:"CHAIN_MODULE" env-default:"tictactoe"`
	PrivateKey     string        `yaml:"private-key" env:"CHAIN_PRIVATE_KEY"`
	PollInterval   time.Duration `yaml:"poll-interval" env:"CHAIN_POLL_INTERVAL" env-default:"4s"`
	GasBudget      uint64        `yaml:"gas-budget" env:"CHAIN_GAS_BUDGET" env-default:"10000000"`
	RequestTimeout time.Duration `yaml:"request-timeout" env:"CHAIN_REQUEST_TIMEOUT" env-default:"10s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Chain) Enabled() bool {
	return that.RPCURL != "" && that.PackageID != ""
}
