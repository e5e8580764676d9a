package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string

		AppName    string
		SchoolName string // used to derive student login emails

		SecretKey          []byte
		JWTExpirationDelta time.Duration

		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads configuration from the environment; an optional
// config/.env.<env> file takes lower precedence than real env vars.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("DEBUG", true)
	conf.SetDefault("APP_NAME", "Lahwla")
	conf.SetDefault("SCHOOL_NAME", "Lahwla")
	conf.SetDefault("SECRET_KEY", "t0q5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("JWT_EXPIRATION_DELTA", 7*24*time.Hour)
	conf.SetDefault("DEFAULT_FROM_EMAIL", "noreply@localhost")
	conf.SetDefault("SERVER_HOST", "0.0.0.0")
	conf.SetDefault("SERVER_PORT", 8080)
	conf.SetDefault("SERVER_DEBUG_HOST", "0.0.0.0:4000")
	conf.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	conf.SetDefault("DATABASE_ENGINE", "postgres")
	conf.SetDefault("DATABASE_NAME", "lahwla")
	conf.SetDefault("DATABASE_HOST", "localhost")
	conf.SetDefault("DATABASE_PORT", 5432)
	conf.SetDefault("DATABASE_DISABLE_TLS", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("DEBUG"),
		TestMode: env == "TEST",
		Env:      env,
		Build:    conf.GetString("BUILD"),

		AppName:    conf.GetString("APP_NAME"),
		SchoolName: conf.GetString("SCHOOL_NAME"),

		SecretKey:          []byte(conf.GetString("SECRET_KEY")),
		JWTExpirationDelta: conf.GetDuration("JWT_EXPIRATION_DELTA"),

		DefaultFromEmail: mail.Address{Name: conf.GetString("APP_NAME"), Address: conf.GetString("DEFAULT_FROM_EMAIL")},
		SendgridAPIKey:   conf.GetString("SENDGRID_API_KEY"),
		RollbarToken:     conf.GetString("ROLLBAR_TOKEN"),

		Server: ServerConfig{
			Host:            conf.GetString("SERVER_HOST"),
			Port:            conf.GetInt("SERVER_PORT"),
			DebugHost:       conf.GetString("SERVER_DEBUG_HOST"),
			ShutdownTimeout: conf.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("DATABASE_ENGINE"),
			Name:          conf.GetString("DATABASE_NAME"),
			User:          conf.GetString("DATABASE_USER"),
			Password:      conf.GetString("DATABASE_PASSWORD"),
			AdminUser:     conf.GetString("DATABASE_ADMIN_USER"),
			AdminPassword: conf.GetString("DATABASE_ADMIN_PASSWORD"),
			Host:          conf.GetString("DATABASE_HOST"),
			Port:          conf.GetInt("DATABASE_PORT"),
			DisableTLS:    conf.GetBool("DATABASE_DISABLE_TLS"),
		},
	}
}
