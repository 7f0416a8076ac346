package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/rayhan-p/storefront/internal/log"
)

type Application struct {
	Env           string `mapstructure:"env"            json:"env"`
	Host          string `mapstructure:"host"           json:"host"`
	SecretKey     string `mapstructure:"secret_key"     json:"-"`
	Port          int    `mapstructure:"port"           json:"port"`
	SecureCookies bool   `mapstructure:"secure_cookies" json:"secure_cookies"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int    `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int    `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Token struct {
	AccessExpiration  int `mapstructure:"access_expiration"  json:"access_expiration"`
	RefreshExpiration int `mapstructure:"refresh_expiration" json:"refresh_expiration"`
	GuestExpiration   int `mapstructure:"guest_expiration"   json:"guest_expiration"`
}

func (t Token) AccessTTL() time.Duration  { return time.Duration(t.AccessExpiration) * time.Second }
func (t Token) RefreshTTL() time.Duration { return time.Duration(t.RefreshExpiration) * time.Second }
func (t Token) GuestTTL() time.Duration   { return time.Duration(t.GuestExpiration) * time.Second }

type Payment struct {
	BaseUrl       string `mapstructure:"base_url"       json:"base_url"`
	ApiKey        string `mapstructure:"api_key"        json:"-"`
	WebhookSecret string `mapstructure:"webhook_secret" json:"-"`
	WebsiteUrl    string `mapstructure:"website_url"    json:"website_url"`
	Timeout       int    `mapstructure:"timeout"        json:"timeout"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Token       `mapstructure:"token"       json:"token"`
	Payment     `mapstructure:"payment"     json:"payment"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

var (
	once   sync.Once
	config *Config
)

func InitConfig(c context.Context, filename string) *Config {
	cfg := Config{}
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Str("filename", filename).
			Logger()

		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.SetConfigType("yaml")
		viper.AutomaticEnv()

		logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			err = fmt.Errorf("error when reading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		err = viper.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("error unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger = logger.With().Any(log.KeyConfig, cfg).Logger()
		logger.Info().Msg("unmarshaled config")
	})
	return config
}
