// internal/config/config.go
package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Database  DatabaseConfig  `env:",prefix=DB_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	AMQP      AMQPConfig      `env:",prefix=AMQP_"`
	Email     EmailConfig     `env:",prefix=EMAIL_"`
	SMS       SMSConfig       `env:",prefix=SMS_"`
	Social    SocialConfig    `env:",prefix=SOCIAL_"`
	Scheduler SchedulerConfig `env:",prefix=SCHEDULER_"`
	App       AppConfig       `env:",prefix=APP_"`
}

type ServerConfig struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            string        `env:"PORT,default=8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10m"` // send-now waits for the whole dispatch
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=campaigns"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=20"`
	MinConns int    `env:"MIN_CONNS,default=2"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"` // empty disables the distributed scheduler lock
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB,default=0"`
}

type AMQPConfig struct {
	URL string `env:"URL"` // empty uses the in-memory queue
}

type EmailConfig struct {
	Provider   string `env:"PROVIDER,default=http"` // http or smtp
	APIURL     string `env:"API_URL,default=https://api.resend.com"`
	APIKey     string `env:"API_KEY"`
	From       string `env:"FROM,default=Campaigns <noreply@example.org>"`
	ReplyTo    string `env:"REPLY_TO"`
	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   string `env:"SMTP_PORT,default=587"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPUseSSL bool   `env:"SMTP_USE_SSL,default=false"`
}

type SMSConfig struct {
	APIURL   string        `env:"API_URL,default=http://bulksmsbd.net/api/smsapi"`
	APIKey   string        `env:"API_KEY"`
	SenderID string        `env:"SENDER_ID"`
	Timeout  time.Duration `env:"TIMEOUT,default=15s"`
}

type SocialConfig struct {
	GraphURL          string  `env:"GRAPH_URL,default=https://graph.facebook.com/v19.0"`
	FacebookPageID    string  `env:"FACEBOOK_PAGE_ID"`
	FacebookToken     string  `env:"FACEBOOK_TOKEN"`
	InstagramUserID   string  `env:"INSTAGRAM_USER_ID"`
	InstagramToken    string  `env:"INSTAGRAM_TOKEN"`
	WhatsAppPhoneID   string  `env:"WHATSAPP_PHONE_ID"`
	WhatsAppToken     string  `env:"WHATSAPP_TOKEN"`
	LinkedInURL       string  `env:"LINKEDIN_URL,default=https://api.linkedin.com/v2"`
	LinkedInAuthor    string  `env:"LINKEDIN_AUTHOR"`
	LinkedInToken     string  `env:"LINKEDIN_TOKEN"`
	RatePerSecond     float64 `env:"RATE_PER_SECOND,default=5"`
	MaxConcurrentSend int     `env:"MAX_CONCURRENT,default=4"`
}

type SchedulerConfig struct {
	Enabled bool          `env:"ENABLED,default=true"`
	Spec    string        `env:"SPEC,default=@every 1m"`
	LockTTL time.Duration `env:"LOCK_TTL,default=50s"`
}

type AppConfig struct {
	Environment  string `env:"ENVIRONMENT,default=development"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	Organization string `env:"ORGANIZATION,default=Our Association"`
	Tagline      string `env:"TAGLINE"`
	Website      string `env:"WEBSITE"`
}

// Load reads .env (if present) and binds the environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}
	return Process(ctx, envconfig.OsLookuper())
}

// Process binds configuration from an arbitrary lookuper.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
