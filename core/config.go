package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store backends
const (
	SessionStoreKeyring = "keyring"
	SessionStoreFile    = "file"
	SessionStoreMemory  = "memory"
)

type Config struct {
	Env       string
	Build     string
	AppName   string
	Debug     bool
	TestMode  bool
	SecretKey string

	RollbarToken string

	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		Store          string // keyring | file | memory
		Key            string
		File           string
		KeyringService string
	}

	Attendance struct {
		EligibilityThreshold float64
	}

	DevServer struct {
		Addr               string
		JWTExpirationDelta time.Duration
	}
}

// NewConfig reads the configuration from the environment (prefixed with ENV),
// after loading `config/.env.<env>` when such a file exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Rollcall")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "k2#9vw!lq0s@7x&f4n)m8p$zt3(r6eh^y1c+b5ud*aoj")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://192.168.8.109:3000/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("session.store", SessionStoreKeyring)
	v.SetDefault("session.key", "userSession")
	v.SetDefault("session.file", filepath.Join(homeDir(), ".rollcall", "session"))
	v.SetDefault("session.keyringService", "rollcall")
	v.SetDefault("attendance.eligibilityThreshold", 0.75)
	v.SetDefault("devserver.addr", ":3000")
	v.SetDefault("devserver.jwtExpirationDelta", 7*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
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

	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.API.BaseURL = strings.TrimRight(v.GetString("api.baseURL"), "/")
	conf.API.Timeout = v.GetDuration("api.timeout")
	conf.Session.Store = CleanString(v.GetString("session.store"), true /* lower */)
	conf.Session.Key = v.GetString("session.key")
	conf.Session.File = v.GetString("session.file")
	conf.Session.KeyringService = v.GetString("session.keyringService")
	conf.Attendance.EligibilityThreshold = v.GetFloat64("attendance.eligibilityThreshold")
	conf.DevServer.Addr = v.GetString("devserver.addr")
	conf.DevServer.JWTExpirationDelta = v.GetDuration("devserver.jwtExpirationDelta")
	return conf
}

func homeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
