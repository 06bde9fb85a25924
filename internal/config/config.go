package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	JWT         JWTConfig        `mapstructure:"jwt"`
	Log         LogConfig        `mapstructure:"log"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	CORS        CORSConfig       `mapstructure:"cors"`
	Calendar    CalendarConfig   `mapstructure:"calendar"`
	Mail        MailConfig       `mapstructure:"mail"`
	Security    SecurityConfig   `mapstructure:"security"`
	Reconciler  ReconcilerConfig `mapstructure:"reconciler"`
	PortalURL   string           `mapstructure:"portal_url"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Channel    string `mapstructure:"channel"`
	PoolSize   int    `mapstructure:"pool_size"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type CalendarConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	CalendarID   string        `mapstructure:"calendar_id"`
	TimeZone     string        `mapstructure:"time_zone"`
	Endpoint     string        `mapstructure:"endpoint"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxFailures  int           `mapstructure:"max_failures"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
}

type MailConfig struct {
	// Driver is one of smtp, queue or none.
	Driver             string        `mapstructure:"driver"`
	From               string        `mapstructure:"from"`
	NotificationEmails string        `mapstructure:"notification_emails"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
	SMTP               struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"smtp"`
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type ReconcilerConfig struct {
	Schedule    string        `mapstructure:"schedule"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	BatchSize   int           `mapstructure:"batch_size"`
}

// Secrets are overlaid from the environment (CLINIC_JWT_SECRET and so on)
// after the config file is read.
type Secrets struct {
	JWTSecret          string `envconfig:"JWT_SECRET"`
	DatabasePassword   string `envconfig:"DB_PASSWORD"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	EncryptionKey      string `envconfig:"ENCRYPTION_KEY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.channel", "clinic.appointments")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.time_zone", "America/Bogota")
	v.SetDefault("calendar.timeout", 10*time.Second)
	v.SetDefault("calendar.max_failures", 5)
	v.SetDefault("calendar.open_timeout", 30*time.Second)
	v.SetDefault("mail.driver", "none")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.send_timeout", 30*time.Second)
	v.SetDefault("reconciler.schedule", "@every 5m")
	v.SetDefault("reconciler.grace_period", 2*time.Minute)
	v.SetDefault("reconciler.batch_size", 100)
	v.SetDefault("portal_url", "http://localhost:3000")
}

// LoadConfig reads config.yml from the working directory or ./config, then
// applies environment overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("CLINIC", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	config.applySecrets(secrets)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applySecrets(s Secrets) {
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.SMTPPassword != "" {
		c.Mail.SMTP.Password = s.SMTPPassword
	}
	if s.GoogleClientSecret != "" {
		c.Calendar.ClientSecret = s.GoogleClientSecret
	}
	if s.EncryptionKey != "" {
		c.Security.EncryptionKey = s.EncryptionKey
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
		return fmt.Errorf("invalid calendar time zone %q: %w", c.Calendar.TimeZone, err)
	}
	switch c.Mail.Driver {
	case "smtp", "queue", "none":
	default:
		return fmt.Errorf("unknown mail driver %q", c.Mail.Driver)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
