package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Realtime RealtimeConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowOrigins              []string
	}

	DatabaseConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		Schema        string
		DisableTLS    bool
	}

	RealtimeConfig struct {
		WriteTimeout   time.Duration
		PongTimeout    time.Duration
		PingInterval   time.Duration
		SendBufferSize int
		MaxMessageSize int64
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// envBindings maps config keys to the plain (un-prefixed) env vars the deployment files use.
var envBindings = map[string]string{
	"database.user":       "DB_USER",
	"database.password":   "DB_PASSWORD",
	"database.host":       "DB_HOST",
	"database.port":       "DB_PORT",
	"database.name":       "DB_NAME",
	"database.schema":     "DB_SCHEMA",
	"database.disableTLS": "DB_DISABLE_TLS",
	"database.adminUser":  "DB_ADMIN_USER",
	"database.adminPwd":   "DB_ADMIN_PASSWORD",
	"server.address":      "SERVER_ADDRESS",
	"secretKey":           "SECRET_KEY",
	"rollbarToken":        "ROLLBAR_TOKEN",
	"sendgridApiKey":      "SENDGRID_API_KEY",
}

// NewConfig loads the application configuration from defaults, an optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "ScaleUp")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "k2#mp8-v!x0@ua5r=9tqz_c4e&wb7l)f1(hs3+jo6dg$yn")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "ScaleUp <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.debugHost", "localhost:5001")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPwd", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "scaleup")
	v.SetDefault("database.schema", "incubateur")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("realtime.writeTimeout", 10*time.Second)
	v.SetDefault("realtime.pongTimeout", 60*time.Second)
	v.SetDefault("realtime.pingInterval", 54*time.Second)
	v.SetDefault("realtime.sendBufferSize", 64)
	v.SetDefault("realtime.maxMessageSize", 16*1024)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()
	for key, envVar := range envBindings {
		_ = v.BindEnv(key, envVar)
	}

	return &Config{
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowOrigins:              v.GetStringSlice("server.allowOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPwd"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			Schema:        v.GetString("database.schema"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Realtime: RealtimeConfig{
			WriteTimeout:   v.GetDuration("realtime.writeTimeout"),
			PongTimeout:    v.GetDuration("realtime.pongTimeout"),
			PingInterval:   v.GetDuration("realtime.pingInterval"),
			SendBufferSize: v.GetInt("realtime.sendBufferSize"),
			MaxMessageSize: v.GetInt64("realtime.maxMessageSize"),
		},
	}
}
