package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config holds every runtime tunable. Values come from the environment
// (godotenv loads .env in main before this runs).
type Config struct {
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// QRTokenTTL is the canonical lifetime of a table QR token.
	QRTokenTTL time.Duration

	// TaxRate and ServiceTaxRate are decimal fractions (0.06 = 6%).
	TaxRate        float64
	ServiceTaxRate float64

	// QRRenderURL is the external chart API used to render QR PNGs.
	// The token URL is appended as a query parameter.
	QRRenderURL string

	// BaseURL is the public URL encoded inside table QR codes.
	BaseURL string

	// QRImageDir is where rendered QR PNGs are kept on disk.
	QRImageDir string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DBUser: getEnv("DB_USER", "root"),
		DBPass: getEnv("DB_PASS", ""),
		DBHost: getEnv("DB_HOST", "127.0.0.1"),
		DBPort: getEnv("DB_PORT", "3306"),
		DBName: getEnv("DB_NAME", "dinelink"),

		QRTokenTTL:     getEnvDuration("QR_TOKEN_TTL", 2*time.Hour),
		TaxRate:        getEnvFloat("TAX_RATE", 0.06),
		ServiceTaxRate: getEnvFloat("SERVICE_TAX_RATE", 0.10),

		QRRenderURL: getEnv("QR_RENDER_URL", "https://api.qrserver.com/v1/create-qr-code/"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		QRImageDir:  getEnv("QR_IMAGE_DIR", "public/uploads/qrcodes"),
	}
}

// InitDB opens the MySQL connection described by cfg.
func InitDB(cfg Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
