package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ridetrackapp/ridetrack-go/internal/tracking"
)

// Config gathers everything read from the environment. A .env file in the
// working directory is honored when present.
type Config struct {
	DataDir      string
	DBPath       string
	ListenAddr   string
	SyncSchedule string // cron expression

	RemoteBaseURL   string
	RemoteAuthToken string

	RiderWeightKg float64
	RiderGender   string

	Validator tracking.ValidatorConfig
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	validator := tracking.DefaultValidatorConfig()
	validator.AutoPause = getEnvBool("AUTO_PAUSE", false)
	validator.MinimumAccuracy = float32(getEnvFloat("MIN_ACCURACY_METERS", float64(validator.MinimumAccuracy)))
	validator.IdleSpeedThreshold = float32(getEnvFloat("IDLE_SPEED_MPS", float64(validator.IdleSpeedThreshold)))
	validator.StaleDataThreshold = getEnvDuration("STALE_DATA_THRESHOLD", validator.StaleDataThreshold)

	return &Config{
		DataDir:         dataDir,
		DBPath:          getEnv("DB_PATH", dataDir+"/ridetrack.db"),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8888"),
		SyncSchedule:    getEnv("SYNC_SCHEDULE", "@hourly"),
		RemoteBaseURL:   getEnv("REMOTE_BASE_URL", "http://localhost:8081"),
		RemoteAuthToken: os.Getenv("REMOTE_AUTH_TOKEN"),
		RiderWeightKg:   getEnvFloat("RIDER_WEIGHT_KG", 0),
		RiderGender:     os.Getenv("RIDER_GENDER"),
		Validator:       validator,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid boolean for %s: %q, using default", key, v)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid number for %s: %q, using default", key, v)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default", key, v)
		return fallback
	}
	return parsed
}
