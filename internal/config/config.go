// Package config загружает настройки сервиса из файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/blog-service/internal/notify"
	"github.com/spf13/viper"
)

// Типы хранилищ
const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// EnvPrefix - префикс переменных окружения: BLOG_LOG_LEVEL и т.д.
const EnvPrefix = "BLOG"

// Config - настройки сервиса.
type Config struct {
	Port        int
	Storage     string
	DatabaseURL string
	Seed        bool
	Log         Log
	Mail        Mail
}

// Log - настройки логгера.
type Log struct {
	Level  string
	Format string
}

// Mail - настройки отправки писем.
type Mail struct {
	From   string
	Sender notify.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("storage", StorageInMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("seed", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "blog@localhost")
	v.SetDefault("mail.mailgun.domain", "")
	v.SetDefault("mail.mailgun.key", "")
	v.SetDefault("mail.sendgrid.key", "")
}

// New создает viper с умолчаниями и привязкой к окружению.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Старые имена переменных без префикса тоже работают
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	return v
}

// Load читает файл path (если задан) поверх умолчаний и окружения.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt("port"),
		Storage:     strings.ToLower(v.GetString("storage")),
		DatabaseURL: v.GetString("database_url"),
		Seed:        v.GetBool("seed"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Mail: Mail{
			From: v.GetString("mail.from"),
			Sender: notify.Config{
				Provider: strings.ToLower(v.GetString("mail.provider")),
				Mailgun: notify.MailgunConfig{
					Domain: v.GetString("mail.mailgun.domain"),
					Key:    v.GetString("mail.mailgun.key"),
				},
				SendGrid: notify.SendGridConfig{
					Key: v.GetString("mail.sendgrid.key"),
				},
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Storage {
	case StorageInMemory:
	case StoragePostgres, StorageSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url must be set for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage)
	}
	if c.Mail.From == "" {
		return errors.New("mail.from must be set")
	}
	return nil
}

// Addr возвращает адрес для http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
