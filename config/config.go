package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	StorageURL        string
	StorageServiceKey string
	StorageBucket     string

	ChromeBin string
	Headless  bool
	SearchURL string

	TargetTotal     int
	MaxPerTarget    int
	MaxPages        int
	LoadAttempts    int
	ScrollCycles    int
	RateLimitMinMs  int
	RateLimitMaxMs  int
	CheckpointEvery int
	BatchSize       int
	ImageRPS        float64

	OutputDir   string
	ImagesDir   string
	BackupDir   string
	TargetsFile string

	SourceCountry string
	PackID        int
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StorageURL:        strings.TrimRight(getEnv("STORAGE_URL", ""), "/"),
		StorageServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket:     getEnv("STORAGE_BUCKET", "property-images"),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),
		SearchURL: getEnv("SEARCH_URL", "https://www.realtor.ca/map#view=list"),

		TargetTotal:     getEnvInt("TARGET_TOTAL", 5000),
		MaxPerTarget:    getEnvInt("MAX_PER_TARGET", 500),
		MaxPages:        getEnvInt("MAX_PAGES", 10),
		LoadAttempts:    getEnvInt("LOAD_ATTEMPTS", 5),
		ScrollCycles:    getEnvInt("SCROLL_CYCLES", 5),
		RateLimitMinMs:  getEnvInt("RATE_LIMIT_MIN_MS", 3000),
		RateLimitMaxMs:  getEnvInt("RATE_LIMIT_MAX_MS", 5000),
		CheckpointEvery: getEnvInt("CHECKPOINT_EVERY", 100),
		BatchSize:       getEnvInt("BATCH_SIZE", 100),
		ImageRPS:        getEnvFloat("IMAGE_RPS", 2),

		OutputDir:   getEnv("OUTPUT_DIR", "./data"),
		ImagesDir:   getEnv("IMAGES_DIR", "./images"),
		BackupDir:   getEnv("BACKUP_DIR", "./backups"),
		TargetsFile: getEnv("TARGETS_FILE", "targets.yaml"),

		SourceCountry: strings.ToUpper(getEnv("SOURCE_COUNTRY", "CA")),
		PackID:        getEnvInt("PACK_ID", 0),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
// Values are quoted so passwords may contain spaces or quotes.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	pairs := [][2]string{
		{"host", c.PostgresHost},
		{"port", c.PostgresPort},
		{"user", c.PostgresUser},
		{"password", c.PostgresPassword},
		{"dbname", c.PostgresDB},
		{"sslmode", c.PostgresSSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		parts = append(parts, kv[0]+"="+quoteDSN(kv[1]))
	}
	return strings.Join(parts, " ")
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteDSN renders v as a single-quoted libpq connection value.
func quoteDSN(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// RateLimit returns the bounds of the randomized delay between search targets.
func (c *Config) RateLimit() (time.Duration, time.Duration) {
	return time.Duration(c.RateLimitMinMs) * time.Millisecond,
		time.Duration(c.RateLimitMaxMs) * time.Millisecond
}

// Pack returns the configured pack id, or nil when none is set.
func (c *Config) Pack() *int {
	if c.PackID <= 0 {
		return nil
	}
	id := c.PackID
	return &id
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
