package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via the
// JSON config file or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	AccessTokenTTLMin  int
	RefreshTokenTTLMin int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and the token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Generative model used for moderation and auto replies
	AIProjectID   string
	AILocation    string
	AIModelName   string
	AIEndpoint    string // optional override, mainly for tests and proxies
	AIAccessToken string
	AITimeoutSec  int
	AIMaxAttempts int
	AIFailPolicy  string // "open" admits content when the classifier is down, "closed" rejects
	// Moderation policy
	PersistBlocked   bool // store flagged comments with blocked=true instead of discarding
	PasswordMinChars int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests use it to avoid touching files or env.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func applyDefaults(out *AppConfig) {
	if out.AppPort == "" {
		out.AppPort = "8080"
	}
	if out.AccessTokenTTLMin <= 0 {
		out.AccessTokenTTLMin = 60
	}
	if out.RefreshTokenTTLMin <= 0 {
		out.RefreshTokenTTLMin = 7 * 24 * 60
	}
	if out.RateLimitPerMinute <= 0 {
		out.RateLimitPerMinute = 60
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
	if out.GinMode == "" {
		out.GinMode = "release"
	}
	if out.GinPath == "" {
		out.GinPath = "logs/gin.log"
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.LogPath == "" {
		out.LogPath = "logs/app.log"
	}
	if out.RedisHost == "" {
		out.RedisHost = "127.0.0.1"
	}
	if out.RedisPort == 0 {
		out.RedisPort = 6379
	}
	if out.AILocation == "" {
		out.AILocation = "us-central1"
	}
	if out.AIModelName == "" {
		out.AIModelName = "gemini-1.5-flash"
	}
	if out.AITimeoutSec <= 0 {
		out.AITimeoutSec = 30
	}
	if out.AIMaxAttempts <= 0 {
		out.AIMaxAttempts = 3
	}
	if out.AIFailPolicy == "" {
		out.AIFailPolicy = "closed"
	}
	if out.PasswordMinChars <= 0 {
		out.PasswordMinChars = 8
	}
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "AccessTokenTTLMin"); v != 0 {
			out.AccessTokenTTLMin = v
		}
		if v := getInt(app, "RefreshTokenTTLMin"); v != 0 {
			out.RefreshTokenTTLMin = v
		}
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if v := getInt(app, "PasswordMinChars"); v != 0 {
			out.PasswordMinChars = v
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["logging"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	if ai, ok := raw["ai"].(map[string]any); ok {
		out.AIProjectID = getString(ai, "ProjectID")
		if v := getString(ai, "Location"); v != "" {
			out.AILocation = v
		}
		if v := getString(ai, "ModelName"); v != "" {
			out.AIModelName = v
		}
		out.AIEndpoint = getString(ai, "Endpoint")
		out.AIAccessToken = getString(ai, "AccessToken")
		if v := getInt(ai, "TimeoutSec"); v != 0 {
			out.AITimeoutSec = v
		}
		if v := getInt(ai, "MaxAttempts"); v != 0 {
			out.AIMaxAttempts = v
		}
		if v := getString(ai, "FailPolicy"); v != "" {
			out.AIFailPolicy = v
		}
	}

	if mod, ok := raw["moderation"].(map[string]any); ok {
		out.PersistBlocked = getBool(mod, "PersistBlocked")
	}

	return nil
}

func applyEnvOverrides(out *AppConfig) {
	out.AppPort = getEnv("APP_PORT", out.AppPort)
	out.JWTSecret = getEnv("JWT_SECRET", out.JWTSecret)
	out.DatabaseURI = getEnv("DATABASE_URI", out.DatabaseURI)
	out.DBHost = getEnv("DB_HOST", out.DBHost)
	out.DBPort = getEnv("DB_PORT", out.DBPort)
	out.DBUser = getEnv("DB_USER", out.DBUser)
	out.DBPassword = getEnv("DB_PASSWORD", out.DBPassword)
	out.DBName = getEnv("DB_NAME", out.DBName)
	out.RedisHost = getEnv("REDIS_HOST", out.RedisHost)
	out.RedisPassword = getEnv("REDIS_PASSWORD", out.RedisPassword)
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisPort = n
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisDB = n
		}
	}
	out.GinMode = getEnv("GIN_MODE", out.GinMode)
	out.LogLevel = getEnv("LOG_LEVEL", out.LogLevel)
	out.LogPath = getEnv("LOG_PATH", out.LogPath)
	out.AIProjectID = getEnv("AI_PROJECT_ID", out.AIProjectID)
	out.AILocation = getEnv("AI_LOCATION", out.AILocation)
	out.AIModelName = getEnv("AI_MODEL_NAME", out.AIModelName)
	out.AIEndpoint = getEnv("AI_ENDPOINT", out.AIEndpoint)
	out.AIAccessToken = getEnv("AI_ACCESS_TOKEN", out.AIAccessToken)
	if v := os.Getenv("AI_FAIL_POLICY"); v != "" {
		out.AIFailPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("MODERATION_PERSIST_BLOCKED"); v != "" {
		out.PersistBlocked = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.RateLimitPerMinute = n
		}
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
