package core

import (
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
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Admin struct {
			ID       string
			Password string
		}

		Server struct {
			Host                      string
			DebugHost                 string
			ShutdownTimeout           time.Duration
			JWTExpirationDelta        time.Duration
			JWTRefreshExpirationDelta time.Duration
			BodyLimit                 string
			AllowOrigins              []string
			LoginMaxAttempts          int64
			LoginLockout              time.Duration
		}

		Database struct {
			URI     string
			Name    string
			Timeout time.Duration
		}

		Redis struct {
			URL string
		}

		Reconcile struct {
			Schedule string
		}
	}
)

// NewConfig loads the configuration for the current ENV (DEV (local; default), TEST, QA, PROD).
// Values are read from the environment, prefixed by ENV (e.g. PROD_SECRETKEY), after loading config/.env.<env>.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Projex")
	v.SetDefault("secretKey", "b7^k2u!g$w9x@3zq+f1m&n8v(p)r0t_y4e=d5c*s6a~h")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("adminId", "admin")
	v.SetDefault("adminPassword", "")
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("serverBodyLimit", "10M")
	v.SetDefault("serverAllowOrigins", []string{"*"})
	v.SetDefault("loginMaxAttempts", int64(5))
	v.SetDefault("loginLockout", 15*time.Minute)
	v.SetDefault("databaseUri", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "projex")
	v.SetDefault("databaseTimeout", 10*time.Second)
	v.SetDefault("redisUrl", "redis://localhost:6379/0")
	v.SetDefault("reconcileSchedule", "0 */10 * * * *")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	conf.Debug = v.GetBool("debug")
	conf.TestMode = v.GetBool("testMode")
	conf.Env = env
	conf.Build = v.GetString("build")
	conf.AppName = v.GetString("appName")
	conf.SecretKey = v.GetString("secretKey")
	conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: v.GetString("defaultFromEmail")}
	conf.SendgridApiKey = v.GetString("sendgridApiKey")
	conf.RollbarToken = v.GetString("rollbarToken")

	conf.Admin.ID = v.GetString("adminId")
	conf.Admin.Password = v.GetString("adminPassword")

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Server.BodyLimit = v.GetString("serverBodyLimit")
	conf.Server.AllowOrigins = v.GetStringSlice("serverAllowOrigins")
	conf.Server.LoginMaxAttempts = v.GetInt64("loginMaxAttempts")
	conf.Server.LoginLockout = v.GetDuration("loginLockout")

	conf.Database.URI = v.GetString("databaseUri")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.Timeout = v.GetDuration("databaseTimeout")

	conf.Redis.URL = v.GetString("redisUrl")
	conf.Reconcile.Schedule = v.GetString("reconcileSchedule")
	return conf
}

// NewTestConfig returns a fixed Config for tests; it never touches the environment.
func NewTestConfig() *Config {
	conf := new(Config)
	conf.Debug = false
	conf.TestMode = true
	conf.Env = "TEST"
	conf.Build = "test"
	conf.AppName = "Projex"
	conf.SecretKey = "test-secret"
	conf.DefaultFromEmail = mail.Address{Name: "Projex", Address: "noreply@test.test"}
	conf.Admin.ID = "admin"
	conf.Admin.Password = "admin-pwd"
	conf.Server.ShutdownTimeout = time.Second
	conf.Server.JWTExpirationDelta = 7 * 24 * time.Hour
	conf.Server.JWTRefreshExpirationDelta = 30 * 24 * time.Hour
	conf.Server.BodyLimit = "10M"
	conf.Server.AllowOrigins = []string{"*"}
	conf.Server.LoginMaxAttempts = 3
	conf.Server.LoginLockout = time.Minute
	conf.Database.Name = "projex_test"
	conf.Database.Timeout = 5 * time.Second
	conf.Reconcile.Schedule = "@every 1m"
	return conf
}
