package config

import (
	"os"
	"strconv"
)

// Config holds every knob the application reads from the environment.
// It is built once in main and passed by reference; packages never
// reach for os.Getenv themselves.
type Config struct {
	Env  string // "development" or "production"
	Addr string

	// Database
	DSN string

	// Auth
	JWTSecret string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Image storage
	StorageType     string // "local" or "s3"
	UploadDir       string
	BaseURL         string
	MaxImageSize    int64
	ImageQuality    int
	ThumbnailWidth  int
	ThumbnailHeight int
	MediumWidth     int
	MediumHeight    int
	LargeWidth      int
	LargeHeight     int

	// S3 (only read when StorageType == "s3")
	S3Bucket string
	S3Region string
	S3CDNURL string

	// SMTP. Leaving SMTPHost/SMTPUser/SMTPPassword empty disables
	// outbound email entirely; sends are logged and skipped.
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FrontendURL  string

	// Order pricing
	TaxRate          float64
	FreeShippingMin  float64
	MidShippingMin   float64
	MidShippingCost  float64
	BaseShippingCost float64
}

// Load reads the full configuration from the environment.
// Call godotenv.Load first if a .env file should be honored.
func Load() *Config {
	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Addr: getEnv("ADDR", ":8080"),

		DSN: getEnv("DB_DSN", "root:secret@tcp(127.0.0.1:3306)/storefront?parseTime=true"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		StorageType:     getEnv("IMAGE_STORAGE_TYPE", "local"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads/products"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		MaxImageSize:    getEnvInt64("MAX_IMAGE_SIZE", 5*1024*1024),
		ImageQuality:    getEnvInt("IMAGE_QUALITY", 90),
		ThumbnailWidth:  getEnvInt("THUMBNAIL_WIDTH", 150),
		ThumbnailHeight: getEnvInt("THUMBNAIL_HEIGHT", 150),
		MediumWidth:     getEnvInt("MEDIUM_WIDTH", 500),
		MediumHeight:    getEnvInt("MEDIUM_HEIGHT", 500),
		LargeWidth:      getEnvInt("LARGE_WIDTH", 1000),
		LargeHeight:     getEnvInt("LARGE_HEIGHT", 1000),

		S3Bucket: getEnv("AWS_S3_BUCKET", ""),
		S3Region: getEnv("AWS_S3_REGION", "eu-central-1"),
		S3CDNURL: getEnv("AWS_S3_CDN_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@liquidinsider.com"),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),

		TaxRate:          getEnvFloat("TAX_RATE", 0.08),
		FreeShippingMin:  getEnvFloat("FREE_SHIPPING_MIN", 100),
		MidShippingMin:   getEnvFloat("MID_SHIPPING_MIN", 50),
		MidShippingCost:  getEnvFloat("MID_SHIPPING_COST", 5.99),
		BaseShippingCost: getEnvFloat("BASE_SHIPPING_COST", 9.99),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
