package utils

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT key
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	AppURL           string `yaml:"APP_URL"`
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// Gemini API configuration
	GeminiAPIKey string `yaml:"GEMINI_API_KEY"`
	GeminiModel  string `yaml:"GEMINI_MODEL"`

	// Runtime environment: "production" extends cache TTLs
	AppEnv string `yaml:"APP_ENV"`

	// Receipt pipeline policy knobs; empty values use built-in defaults
	ConfidenceThreshold    string `yaml:"CONFIDENCE_THRESHOLD"`
	InsightTTLHours        string `yaml:"INSIGHT_TTL_HOURS"`
	StaleProcessingMinutes string `yaml:"STALE_PROCESSING_MINUTES"`
	StaleConfirmedMinutes  string `yaml:"STALE_CONFIRMED_MINUTES"`
	WorkerBatchSize        string `yaml:"WORKER_BATCH_SIZE"`
	WorkerIntervalSeconds  string `yaml:"WORKER_INTERVAL_SECONDS"`
}

var config Config

func LoadConfig() {
	// .env is optional; config.yaml remains the primary source.
	_ = godotenv.Load()

	file, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}

	// Set environment variables for keys that should be accessible via os.Getenv
	os.Setenv("JWT_SECRET", config.JWTSecret)
	os.Setenv("AWS_S3_BUCKET", config.AWSS3Bucket)
	os.Setenv("AWS_S3_REGION", config.AWSS3Region)
	os.Setenv("AWS_ACCESS_KEY", config.AWSAccessKey)
	os.Setenv("AWS_SECRET_KEY", config.AWSSecretKey)
	os.Setenv("GEMINI_API_KEY", config.GeminiAPIKey)
}

// GetConfig reads a key from the loaded yaml, falling back to the process
// environment so container deployments can skip the file entirely.
func GetConfig(key string) string {
	value := func() string {
		switch key {
		case "DB_USER":
			return config.DBUser
		case "DB_NAME":
			return config.DBName
		case "DB_PASSWORD":
			return config.DBPassword
		case "DB_PORT":
			return config.DBPort
		case "DB_HOST":
			return config.DBHost
		case "JWT_SECRET":
			return config.JWTSecret
		case "APP_URL":
			return config.AppURL
		case "SMTP_HOST":
			return config.SMTPHost
		case "SMTP_PORT":
			return config.SMTPPort
		case "SMTP_SENDER_NAME":
			return config.SMTPSenderName
		case "SMTP_AUTH_EMAIL":
			return config.SMTPAuthEmail
		case "SMTP_AUTH_PASSWORD":
			return config.SMTPAuthPassword
		case "AWS_S3_BUCKET":
			return config.AWSS3Bucket
		case "AWS_S3_REGION":
			return config.AWSS3Region
		case "AWS_ACCESS_KEY":
			return config.AWSAccessKey
		case "AWS_SECRET_KEY":
			return config.AWSSecretKey
		case "GEMINI_API_KEY":
			return config.GeminiAPIKey
		case "GEMINI_MODEL":
			return config.GeminiModel
		case "APP_ENV":
			return config.AppEnv
		case "CONFIDENCE_THRESHOLD":
			return config.ConfidenceThreshold
		case "INSIGHT_TTL_HOURS":
			return config.InsightTTLHours
		case "STALE_PROCESSING_MINUTES":
			return config.StaleProcessingMinutes
		case "STALE_CONFIRMED_MINUTES":
			return config.StaleConfirmedMinutes
		case "WORKER_BATCH_SIZE":
			return config.WorkerBatchSize
		case "WORKER_INTERVAL_SECONDS":
			return config.WorkerIntervalSeconds
		default:
			return ""
		}
	}()
	if value == "" {
		return os.Getenv(key)
	}
	return value
}
