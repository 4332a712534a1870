// Ininicializing common application configuration
package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	AppVersion   string `json:"appVersion"`
	Host         string `json:"host" validate:"required"`
	Port         string `json:"port" validate:"required"`
	Timeout      time.Duration
	Idle_timeout time.Duration
	Env          string `json:"environment"`
	Mode         string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AppConfig struct {
	// Timezone — IANA-таймзона бизнеса; в ней считаются "сегодня" и окна
	// напоминаний.
	Timezone string `mapstructure:"timezone"`
}

type TelegramConfig struct {
	BotToken    string        `mapstructure:"bot_token"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Enabled  bool   `mapstructure:"enabled"`
}

type BookingConfig struct {
	// Рабочие часы по умолчанию, если у мастера они не заданы
	DefaultWorkStart string `mapstructure:"default_work_start"`
	DefaultWorkEnd   string `mapstructure:"default_work_end"`
	// Минимальный запас до ближайшего слота "на сегодня", в минутах
	MinLeadMinutes int `mapstructure:"min_lead_minutes"`
}

type NotifierConfig struct {
	// Интервал прохода планировщика уведомлений
	Interval time.Duration `mapstructure:"interval"`
}

type RedisConfig struct {
	URL      string `json:"URL"`
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required"`
	Password string `json:"password" validate:"required"`
	DB       int    `json:"db" validate:"required"`

	// Настройки пула соединений
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	MaxIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	setDefaults(viperInstance)

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		log.Fatalf("unable to decode config into struct, %v", err)
		return nil, err
	}

	// Секреты можно задать окружением, не храня их в yaml
	c.Database.Password = GetEnv("DB_PASSWORD", c.Database.Password)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Telegram.BotToken = GetEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.RabbitMQ.URL = GetEnv("RABBITMQ_URL", c.RabbitMQ.URL)

	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.appVersion", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "barbershop_user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "barbershop")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("app.timezone", "Europe/Moscow")

	v.SetDefault("telegram.send_timeout", 10*time.Second)
	v.SetDefault("telegram.enabled", true)

	v.SetDefault("rabbitmq.exchange", "bookings")
	v.SetDefault("rabbitmq.enabled", false)

	v.SetDefault("booking.default_work_start", "09:00")
	v.SetDefault("booking.default_work_end", "18:00")
	v.SetDefault("booking.min_lead_minutes", 30)

	v.SetDefault("notifier.interval", time.Minute)
}
