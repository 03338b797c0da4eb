package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"price-monitor/analysis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	BaseURL         string
	Categories      []string
	MaxProducts     int
	MaxConcurrency  int
	RateLimit       time.Duration
	MaxRetries      int
	PageLoadTimeout time.Duration
	UseMock         bool
	MockSeed        int64
	ChromeBin       string

	CSVOutputPath    string
	ReportOutputPath string
	LogLevel         string

	Analysis analysis.Config
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "monitor"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "monitor123"),
		PostgresDB:       getEnv("POSTGRES_DB", "price_monitor"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		BaseURL:         getEnv("SCRAPER_BASE_URL", "https://www.bilka.dk"),
		Categories:      getEnvList("SCRAPER_CATEGORIES", []string{"elektronik", "hjem-og-interioer", "sport-og-fritid"}),
		MaxProducts:     getEnvInt("MAX_PRODUCTS_PER_CATEGORY", 50),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 2),
		RateLimit:       time.Duration(getEnvInt("RATE_LIMIT_MS", 2000)) * time.Millisecond,
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		PageLoadTimeout: time.Duration(getEnvInt("PAGE_LOAD_TIMEOUT_S", 30)) * time.Second,
		UseMock:         getEnvBool("USE_MOCK_DATA", false),
		MockSeed:        int64(getEnvInt("MOCK_SEED", 42)),
		ChromeBin:       getEnv("CHROME_BIN", ""),

		CSVOutputPath:    getEnv("CSV_OUTPUT_PATH", "./output/raw_products.csv"),
		ReportOutputPath: getEnv("REPORT_OUTPUT_PATH", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		Analysis: loadAnalysis(),
	}
}

// loadAnalysis starts from the stock thresholds and applies env overrides.
func loadAnalysis() analysis.Config {
	c := analysis.DefaultConfig()

	c.MinCategorySamples = getEnvInt("MIN_CATEGORY_SAMPLES", c.MinCategorySamples)
	c.MinConfidence = getEnvFloat("MIN_CONFIDENCE", c.MinConfidence)
	c.ZScore.Threshold = getEnvFloat("ZSCORE_THRESHOLD", c.ZScore.Threshold)
	c.IQR.Multiplier = getEnvFloat("IQR_MULTIPLIER", c.IQR.Multiplier)
	c.FakeDiscount.MedianMultiplier = getEnvFloat("FAKE_DISCOUNT_MEDIAN_MULTIPLIER", c.FakeDiscount.MedianMultiplier)
	c.TooGood.PremiumBrands = getEnvList("PREMIUM_BRANDS", c.TooGood.PremiumBrands)
	c.Validity.MaxDiscount = getEnvFloat("MAX_DISCOUNT", c.Validity.MaxDiscount)
	c.Validity.MismatchTolerance = getEnvFloat("DISCOUNT_MISMATCH_TOLERANCE", c.Validity.MismatchTolerance)
	c.History.MaxPriceChange = getEnvFloat("MAX_PRICE_CHANGE", c.History.MaxPriceChange)
	c.Report.TopN = getEnvInt("REPORT_TOP_N", c.Report.TopN)
	c.Report.HighDiscountThreshold = getEnvFloat("HIGH_DISCOUNT_THRESHOLD", c.Report.HighDiscountThreshold)

	return c
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
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

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
