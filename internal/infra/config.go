package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации обоих сервисов.
// Собирается один раз на старте процесса и дальше только читается:
// ни один компонент не лезет в окружение напрямую.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Framework FrameworkConfig `mapstructure:"framework"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub инвалидация + kill switch).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT админки.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"` // Только для Console API
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
}

// PolicyConfig — переключатели движка решений.
//
// Контракт обратной совместимости: при Enabled=false поведение целиком
// определяется UnionEnabled, как до появления движка. Метаданные в этом
// случае не трогаются вообще, даже если в БД лежит опубликованный документ.
type PolicyConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Mode             string `mapstructure:"mode"`          // auto | legacy | union | union_metadata
	UnionEnabled     bool   `mapstructure:"union_enabled"` // статический флаг для auto и выключенного движка
	RolloutEndpoints string `mapstructure:"rollout_endpoints"`
	MetadataPath     string `mapstructure:"metadata_path"` // JSON-файл для asset-режима
	FallbackToUnion  bool   `mapstructure:"fallback_to_union"`
	Precedence       string `mapstructure:"precedence"` // старшинство измерений для legacy
}

// RolloutPatterns разбирает CSV-список glob-шаблонов. Пустой список
// означает «раскатка на все операции».
func (p PolicyConfig) RolloutPatterns() []string {
	var out []string
	for _, token := range strings.Split(p.RolloutEndpoints, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// PrecedenceOrder возвращает порядок измерений для legacy-старшинства
func (p PolicyConfig) PrecedenceOrder() []string {
	var out []string
	for _, token := range strings.Split(p.Precedence, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// FrameworkConfig управляет адаптером источника документов.
// ReadMode=db требует Enabled=true, иначе конфигурация противоречива.
type FrameworkConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ReadMode    string        `mapstructure:"read_mode"` // asset | db
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // Потолок похода в БД на горячем пути
}

// AuditConfig — выборочная запись решений.
type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Verbose       bool          `mapstructure:"verbose"`
	SampleRate    float64       `mapstructure:"sample_rate"` // 0.0..1.0
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: POLICY_MODE=union перекроет policy.mode
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Проверка непротиворечивости переключателей.
	// Ловим на старте, а не на первом запросе.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 7. Загрузка ключей из Файла ИЛИ из ENV
	// Сначала проверяем, не лежит ли сам PEM-ключ в ENV (для Docker/K8s)
	// Если нет — читаем файл по указанному пути
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

// Validate отлавливает противоречивые комбинации переключателей (ConfigurationError)
func (c *Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.Framework.ReadMode))
	switch mode {
	case "", "asset":
		c.Framework.ReadMode = "asset"
	case "db":
		if !c.Framework.Enabled {
			return fmt.Errorf("config: framework.read_mode=db requires framework.enabled=true")
		}
		c.Framework.ReadMode = "db"
	default:
		return fmt.Errorf("config: unknown framework.read_mode %q (expected asset|db)", mode)
	}

	// Сэмплирование зажимаем в [0,1] вместо отказа: значение приходит
	// из ENV и опечатка оператора не должна ронять сервис
	if c.Audit.SampleRate < 0 {
		c.Audit.SampleRate = 0
	}
	if c.Audit.SampleRate > 1 {
		c.Audit.SampleRate = 1
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")

	v.SetDefault("policy.enabled", true)
	v.SetDefault("policy.mode", "auto")
	v.SetDefault("policy.union_enabled", true)
	v.SetDefault("policy.fallback_to_union", true)
	v.SetDefault("policy.precedence", "forwarder_id,vendor_id,customer_id")

	v.SetDefault("framework.enabled", false)
	v.SetDefault("framework.read_mode", "asset")
	v.SetDefault("framework.cache_ttl", 60*time.Second)
	v.SetDefault("framework.read_timeout", 500*time.Millisecond)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.verbose", false)
	v.SetDefault("audit.sample_rate", 1.0)
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.flush_interval", 1*time.Second)
}

// loadKeyResource — универсальный хелпер: ключ либо напрямую в ENV, либо файлом
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
