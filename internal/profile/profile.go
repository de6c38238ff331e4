package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration of one shopfloor session.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory used by the sqlite driver
	Data string
	// Driver is the entity store driver (supabase, postgres or sqlite)
	Driver string
	// DSN is the connection string for the postgres and sqlite drivers
	DSN string
	// Version is the current version of the client
	Version string

	// Supabase project, shared by the supabase store driver and the supabase media backend.
	SupabaseURL string // SHOPFLOOR_SUPABASE_URL
	SupabaseKey string // SHOPFLOOR_SUPABASE_KEY

	// Media store configuration
	MediaBackend       string        // SHOPFLOOR_MEDIA_BACKEND (default: supabase)
	S3Endpoint         string        // SHOPFLOOR_S3_ENDPOINT
	S3AccessKey        string        // SHOPFLOOR_S3_ACCESS_KEY
	S3SecretKey        string        // SHOPFLOOR_S3_SECRET_KEY
	S3Region           string        // SHOPFLOOR_S3_REGION
	S3UseSSL           bool          // SHOPFLOOR_S3_USE_SSL
	S3PublicURL        string        // SHOPFLOOR_S3_PUBLIC_URL (default: endpoint URL)
	EnsureBucketsOnRun bool          // SHOPFLOOR_ENSURE_BUCKETS
	ImageCacheClear    time.Duration // SHOPFLOOR_IMAGE_CACHE_CLEAR (default: 2h)
	RedisAddr          string        // SHOPFLOOR_REDIS_ADDR (empty disables the L2 image cache)
	RedisPassword      string        // SHOPFLOOR_REDIS_PASSWORD
	RedisDB            int           // SHOPFLOOR_REDIS_DB

	// Extraction configuration
	OCREnabled         bool    // SHOPFLOOR_OCR_ENABLED (default: false)
	TextExtractEnabled bool    // SHOPFLOOR_TEXTEXTRACT_ENABLED (default: false)
	TesseractPath      string  // SHOPFLOOR_OCR_TESSERACT_PATH (default: tesseract)
	TessdataPath       string  // SHOPFLOOR_OCR_TESSDATA_PATH (default: "")
	OCRLanguages       string  // SHOPFLOOR_OCR_LANGUAGES (default: spa+eng)
	TikaServerURL      string  // SHOPFLOOR_TEXTEXTRACT_TIKA_URL (default: http://localhost:9998)
	LLMAPIKey          string  // SHOPFLOOR_LLM_API_KEY
	LLMBaseURL         string  // SHOPFLOOR_LLM_BASE_URL (default: https://api.deepseek.com)
	LLMModel           string  // SHOPFLOOR_LLM_MODEL (default: deepseek-chat)
	ExtractRPS         float64 // SHOPFLOOR_EXTRACT_RPS (default: 1)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM key is configured for field extraction.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// IsRedisEnabled reports whether the image dedup cache has a Redis tier.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from SHOPFLOOR_* environment variables.
// Fields that are already set are kept, so flags bound by the CLI win over the environment.
func (p *Profile) FromEnv() {
	setString := func(field *string, key, defaultValue string) {
		if *field == "" {
			*field = getEnvOrDefault(key, defaultValue)
		}
	}
	getBool := func(key string) bool {
		return os.Getenv(key) == "true"
	}

	setString(&p.Mode, "SHOPFLOOR_MODE", "dev")
	setString(&p.Driver, "SHOPFLOOR_DRIVER", "supabase")
	setString(&p.DSN, "SHOPFLOOR_DSN", "")
	setString(&p.Data, "SHOPFLOOR_DATA", "")

	setString(&p.SupabaseURL, "SHOPFLOOR_SUPABASE_URL", "")
	setString(&p.SupabaseKey, "SHOPFLOOR_SUPABASE_KEY", "")

	setString(&p.MediaBackend, "SHOPFLOOR_MEDIA_BACKEND", "supabase")
	setString(&p.S3Endpoint, "SHOPFLOOR_S3_ENDPOINT", "")
	setString(&p.S3AccessKey, "SHOPFLOOR_S3_ACCESS_KEY", "")
	setString(&p.S3SecretKey, "SHOPFLOOR_S3_SECRET_KEY", "")
	setString(&p.S3Region, "SHOPFLOOR_S3_REGION", "")
	setString(&p.S3PublicURL, "SHOPFLOOR_S3_PUBLIC_URL", "")
	p.S3UseSSL = p.S3UseSSL || getBool("SHOPFLOOR_S3_USE_SSL")
	p.EnsureBucketsOnRun = p.EnsureBucketsOnRun || getBool("SHOPFLOOR_ENSURE_BUCKETS")

	setString(&p.RedisAddr, "SHOPFLOOR_REDIS_ADDR", "")
	setString(&p.RedisPassword, "SHOPFLOOR_REDIS_PASSWORD", "")
	if p.RedisDB == 0 {
		if db, err := strconv.Atoi(os.Getenv("SHOPFLOOR_REDIS_DB")); err == nil {
			p.RedisDB = db
		}
	}
	if p.ImageCacheClear == 0 {
		p.ImageCacheClear = 2 * time.Hour
		if d, err := time.ParseDuration(os.Getenv("SHOPFLOOR_IMAGE_CACHE_CLEAR")); err == nil && d > 0 {
			p.ImageCacheClear = d
		}
	}

	p.OCREnabled = p.OCREnabled || getBool("SHOPFLOOR_OCR_ENABLED")
	p.TextExtractEnabled = p.TextExtractEnabled || getBool("SHOPFLOOR_TEXTEXTRACT_ENABLED")
	setString(&p.TesseractPath, "SHOPFLOOR_OCR_TESSERACT_PATH", "tesseract")
	setString(&p.TessdataPath, "SHOPFLOOR_OCR_TESSDATA_PATH", "")
	setString(&p.OCRLanguages, "SHOPFLOOR_OCR_LANGUAGES", "spa+eng")
	setString(&p.TikaServerURL, "SHOPFLOOR_TEXTEXTRACT_TIKA_URL", "http://localhost:9998")
	setString(&p.LLMAPIKey, "SHOPFLOOR_LLM_API_KEY", "")
	setString(&p.LLMBaseURL, "SHOPFLOOR_LLM_BASE_URL", "https://api.deepseek.com")
	setString(&p.LLMModel, "SHOPFLOOR_LLM_MODEL", "deepseek-chat")
	if p.ExtractRPS == 0 {
		p.ExtractRPS = 1
		if rps, err := strconv.ParseFloat(os.Getenv("SHOPFLOOR_EXTRACT_RPS"), 64); err == nil && rps > 0 {
			p.ExtractRPS = rps
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "supabase":
		if p.SupabaseURL == "" || p.SupabaseKey == "" {
			return errors.New("supabase driver requires SHOPFLOOR_SUPABASE_URL and SHOPFLOOR_SUPABASE_KEY")
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a DSN")
		}
	case "sqlite":
		if p.DSN == "" {
			if p.Data == "" {
				p.Data = "."
			}
			dataDir, err := checkDataDir(p.Data)
			if err != nil {
				slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
			p.Data = dataDir
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("shopfloor_%s.db", p.Mode))
		}
	default:
		return errors.Errorf("unknown driver %q", p.Driver)
	}

	switch p.MediaBackend {
	case "supabase":
		if p.SupabaseURL == "" || p.SupabaseKey == "" {
			return errors.New("supabase media backend requires SHOPFLOOR_SUPABASE_URL and SHOPFLOOR_SUPABASE_KEY")
		}
	case "s3":
		if p.S3Endpoint == "" {
			return errors.New("s3 media backend requires SHOPFLOOR_S3_ENDPOINT")
		}
	default:
		return errors.Errorf("unknown media backend %q", p.MediaBackend)
	}

	if p.ExtractRPS <= 0 {
		p.ExtractRPS = 1
	}
	return nil
}
