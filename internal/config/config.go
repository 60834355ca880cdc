package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr     string
	BackendURL     string
	ChatBackend    string
	ClaudeAPIKey   string
	ClaudeModel    string
	OllamaHost     string
	OllamaModel    string
	DBPath         string
	PreviewPath    string
	RevealInterval time.Duration
	SessionTTL     time.Duration
	MaxSessions    int
	DefaultLang    string
	LogLevel       string
	LogFile        string
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, is loaded first; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		BackendURL:     getEnv("BACKEND_URL", "http://127.0.0.1:5000"),
		ChatBackend:    getEnv("CHAT_BACKEND", "backend"),
		ClaudeAPIKey:   getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:    getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llama3.2"),
		DBPath:         getEnv("DB_PATH", "/data/betelcare.db"),
		PreviewPath:    getEnv("PREVIEW_PATH", "/data/previews"),
		RevealInterval: getDuration("REVEAL_INTERVAL", 12*time.Millisecond),
		SessionTTL:     getDuration("SESSION_TTL", 2*time.Hour),
		MaxSessions:    getInt("MAX_SESSIONS", 1024),
		DefaultLang:    getEnv("DEFAULT_LANG", "en"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getDuration parses a Go duration; malformed or negative values fall back
// to the default.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func getInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
