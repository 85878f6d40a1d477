package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type API struct {
	BaseURL     string        `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`
	CSRFBaseURL string        `yaml:"csrf_base_url" env:"API_CSRF_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

type Storage struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"file"`
	Dir     string `yaml:"dir" env:"STORAGE_DIR" env-default:".storefront"`
}

type RedisConnect struct {
	Addr     string `yaml:"REDIS_ADDR" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"REDIS_PREFIX" env:"REDIS_PREFIX" env-default:"storefront"`
}

type Notifications struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"NOTIFICATION_POLL_INTERVAL" env-default:"120s"`
}

type Checkout struct {
	PointsFloor      int `yaml:"points_floor" env:"POINTS_FLOOR" env-default:"100"`
	CountdownSeconds int `yaml:"countdown_seconds" env:"COUNTDOWN_SECONDS" env-default:"4"`
}

type Metrics struct {
	Addr string `yaml:"address" env:"METRICS_ADDR" env-default:":9091"`
}

type Otel struct {
	Enabled          bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	ServiceName      string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"storefront"`
	ExporterEndpoint string `yaml:"exporter_endpoint" env:"OTEL_EXPORTER_ENDPOINT"`
}

type Config struct {
	Env           string        `yaml:"env" env:"ENV" env-default:"local"`
	API           API           `yaml:"api"`
	Storage       Storage       `yaml:"storage"`
	RedisConnect  RedisConnect  `yaml:"redis"`
	Notifications Notifications `yaml:"notifications"`
	Checkout      Checkout      `yaml:"checkout"`
	Metrics       Metrics       `yaml:"metrics"`
	Otel          Otel          `yaml:"otel"`
}

func (r *RedisConnect) GetDSN() string {

	cred := ""
	if r.Username != "" || r.Password != "" {
		cred = fmt.Sprintf("%s:%s@", r.Username, r.Password)
	}

	return fmt.Sprintf("redis://%s%s/%d", cred, r.Addr, r.DB)
}

func MustLoad() *Config {

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {

		flags := flag.String("config", "", "gets the config flag value")

		flag.Parse()

		configPath = *flags

		if configPath == "" {

			log.Fatal("Config path is not set")

		}

	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("can not read config file: %s", err.Error())
	}

	return cfg

}

func LoadConfigFromPath(configPath string) (*Config, error) {

	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	// The CSRF priming endpoint lives outside the API prefix on the same host.
	if cfg.API.CSRFBaseURL == "" {
		cfg.API.CSRFBaseURL = cfg.API.BaseURL
	}

	return &cfg, nil
}
