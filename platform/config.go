package platform

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config 服务运行所需的全部配置，均来自环境变量
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`
	LogPath  string `env:"LOG_PATH" envDefault:"./log"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost"`

	DB DBConfig

	// Secret shared with the identity provider that signs the bearer tokens.
	AccessSecret string `env:"ACCESS_SECRET,required"`

	// LLM settings. An empty key is allowed at startup; generation then fails per request.
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gemini-1.5-pro"`

	// Commerce mirror keys for the monthly premium subscription.
	PremiumProductID     string `env:"PREMIUM_PRODUCT_ID" envDefault:"com.hunyhun.aisaint.premium.monthly"`
	PremiumEntitlementID string `env:"PREMIUM_ENTITLEMENT_ID" envDefault:"Monthly Premium"`

	Mail MailConfig
}

// DBConfig 包含数据库连接的配置信息
type DBConfig struct {
	Host     string `env:"SQL_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"SQL_PORT" envDefault:"3306"`
	User     string `env:"SQL_USER"`
	Password string `env:"SQL_PASSWORD"`
	DBName   string `env:"SQL_DBNAME" envDefault:"saintchat"`
}

// DSN builds the MySQL data source name.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// MailConfig drives the daily usage report. The report is off when To or SMTPAddr
// is empty.
type MailConfig struct {
	SMTPAddr     string   `env:"SMTP_ADDR"`
	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPUser     string   `env:"SMTP_USER"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	From         string   `env:"REPORT_MAIL_FROM"`
	To           []string `env:"REPORT_MAIL_TO" envSeparator:","`
	Schedule     string   `env:"REPORT_CRON" envDefault:"0 7 * * *"`
}

// LoadConfig reads an optional .env file and parses the environment.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		// 没有 .env 文件时直接使用进程环境变量
		_ = godotenv.Load(envFile)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
