package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	SMS          SMSConfig
	Verification VerificationConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`
}

// SMSConfig содержит настройки SMS-шлюза
type SMSConfig struct {
	// Provider: "gateway" — боевой HTTP-шлюз, "noop" — локальная разработка
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Sender   string `mapstructure:"sender"`

	// CountryCode: префикс для нормализации локальных номеров (по умолчанию "+852")
	CountryCode string `mapstructure:"country_code"`

	// ResendAPIKey / EmailFrom: приветственное письмо после регистрации (опционально)
	ResendAPIKey string `mapstructure:"resend_api_key"`
	EmailFrom    string `mapstructure:"email_from"`
}

// VerificationConfig содержит настройки жизненного цикла кодов подтверждения
type VerificationConfig struct {
	// CodeTTLSec: время жизни кода подтверждения в секундах
	CodeTTLSec int `mapstructure:"code_ttl_sec"`

	// TokenTTLSec: время жизни регистрационного токена в секундах
	TokenTTLSec int `mapstructure:"token_ttl_sec"`

	// ResendCooldownSec: серверный кулдаун между запросами кода на один номер
	ResendCooldownSec int `mapstructure:"resend_cooldown_sec"`

	// RetentionHours: окно хранения записей до физической очистки
	RetentionHours int `mapstructure:"retention_hours"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// CodeTTL возвращает TTL кода как time.Duration
func (v *VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.CodeTTLSec) * time.Second
}

// TokenTTL возвращает TTL регистрационного токена как time.Duration
func (v *VerificationConfig) TokenTTL() time.Duration {
	return time.Duration(v.TokenTTLSec) * time.Second
}

// ResendCooldown возвращает кулдаун повторной отправки как time.Duration
func (v *VerificationConfig) ResendCooldown() time.Duration {
	return time.Duration(v.ResendCooldownSec) * time.Second
}

// Retention возвращает окно хранения как time.Duration
func (v *VerificationConfig) Retention() time.Duration {
	return time.Duration(v.RetentionHours) * time.Hour
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию (эталонное поведение: код 5 минут, кулдаун 90 секунд)
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("sms.provider", "noop")
	vip.SetDefault("sms.country_code", "+852")
	vip.SetDefault("verification.code_ttl_sec", 300)
	vip.SetDefault("verification.token_ttl_sec", 300)
	vip.SetDefault("verification.resend_cooldown_sec", 90)
	vip.SetDefault("verification.retention_hours", 24)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("sms.provider", "SMS_PROVIDER")
	vip.BindEnv("sms.base_url", "SMS_BASE_URL")
	vip.BindEnv("sms.api_key", "SMS_API_KEY")
	vip.BindEnv("sms.sender", "SMS_SENDER")
	vip.BindEnv("sms.country_code", "SMS_COUNTRY_CODE")
	vip.BindEnv("sms.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("sms.email_from", "EMAIL_FROM")

	vip.BindEnv("verification.code_ttl_sec", "VERIFICATION_CODE_TTL_SEC")
	vip.BindEnv("verification.token_ttl_sec", "VERIFICATION_TOKEN_TTL_SEC")
	vip.BindEnv("verification.resend_cooldown_sec", "VERIFICATION_RESEND_COOLDOWN_SEC")
	vip.BindEnv("verification.retention_hours", "VERIFICATION_RETENTION_HOURS")

	// 3. Путь к файлу конфигурации (не страшно, если файла нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("SMS Provider: %s", cfg.SMS.Provider)
		log.Printf("Country Code: %s", cfg.SMS.CountryCode)
		log.Printf("Code TTL: %ds, Resend Cooldown: %ds", cfg.Verification.CodeTTLSec, cfg.Verification.ResendCooldownSec)
		log.Printf("-----------------------------------------")
	}

	// 5. Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.SMS.Provider == "gateway" && (cfg.SMS.BaseURL == "" || cfg.SMS.APIKey == "") {
		return nil, fmt.Errorf("sms gateway configuration (base_url, api_key) is incomplete (check SMS_BASE_URL, SMS_API_KEY env vars)")
	}
	if os.Getenv("GIN_MODE") == "release" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
	}

	return &cfg, nil
}
