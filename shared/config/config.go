package config

import (
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	API           API       `yaml:"api"`
	Lifecycle     Lifecycle `yaml:"lifecycle"`
	Pending       Pending   `yaml:"pending"`
	Sync          Sync      `yaml:"sync"`
	HTTP          HTTP      `yaml:"http"`
	Log           Log       `yaml:"log"`
	SecureCookies bool      `yaml:"secure_cookies"`
}

type API struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // timeout is treated as a network failure
}

type Lifecycle struct {
	ActiveWindow time.Duration `yaml:"active_window"` // applications accepted while younger than this
	ReviewWindow time.Duration `yaml:"review_window"` // post expires after this
}

type Pending struct {
	Driver string `yaml:"driver"` // memory | sqlite | postgres
	Path   string `yaml:"path"`   // sqlite file
}

type Sync struct {
	Interval time.Duration `yaml:"interval"`  // background re-sync; 0 disables
	PushRate float64       `yaml:"push_rate"` // pushes per second during a pass
}

type HTTP struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Private struct {
	JwtKey string `yaml:"jwt_key"`
	Pg     Pg     `yaml:"pg"`
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func (s *Config) RequestTimeout() time.Duration {
	return s.Public.API.RequestTimeout
}

// Default returns a config usable without any files on disk.
func Default() *Config {
	return &Config{
		Public: Public{
			API: API{
				BaseURL:        "http://localhost:8080",
				RequestTimeout: 12 * time.Second,
			},
			Lifecycle: Lifecycle{
				ActiveWindow: 20 * time.Hour,
				ReviewWindow: 24 * time.Hour,
			},
			Pending: Pending{
				Driver: "sqlite",
				Path:   "looped-pending.db",
			},
			Sync: Sync{
				Interval: 0,
				PushRate: 5,
			},
			HTTP: HTTP{
				Port:           "8081",
				AllowedOrigins: []string{"http://localhost:5173"},
			},
			Log: Log{Level: "info"},
		},
		Private: Private{
			Pg: Pg{Host: "localhost", Port: 5432, Dbname: "looped"},
		},
	}
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file: " + err.Error())
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder on top of
// Default(), then applies environment overrides (a .env file is honoured).
func MustLoad(configFolder string) *Config {
	cfg := Default()
	mustLoadPath(path.Join(configFolder, "public.yaml"), &cfg.Public)
	mustLoadPath(path.Join(configFolder, "private.yaml"), &cfg.Private)
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv overrides cfg with LOOPED_* / LOG_* / PORT variables.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	setString(&cfg.Public.API.BaseURL, "LOOPED_API_BASE_URL")
	setDuration(&cfg.Public.API.RequestTimeout, "LOOPED_REQUEST_TIMEOUT")
	setString(&cfg.Public.Pending.Driver, "LOOPED_PENDING_DRIVER")
	setString(&cfg.Public.Pending.Path, "LOOPED_PENDING_PATH")
	setDuration(&cfg.Public.Sync.Interval, "LOOPED_SYNC_INTERVAL")
	setString(&cfg.Public.HTTP.Port, "PORT")
	setString(&cfg.Public.Log.Level, "LOG_LEVEL")
	if v, ok := os.LookupEnv("LOG_JSON"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Public.Log.JSON = b
		}
	}
	if v, ok := os.LookupEnv("LOOPED_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Public.HTTP.AllowedOrigins = origins
	}

	setString(&cfg.Private.JwtKey, "LOOPED_JWT_KEY")
	setString(&cfg.Private.Pg.Host, "LOOPED_PG_HOST")
	setString(&cfg.Private.Pg.User, "LOOPED_PG_USER")
	setString(&cfg.Private.Pg.Password, "LOOPED_PG_PASSWORD")
	setString(&cfg.Private.Pg.Dbname, "LOOPED_PG_DBNAME")
	if v, ok := os.LookupEnv("LOOPED_PG_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Private.Pg.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
