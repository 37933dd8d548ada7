package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	TwitterClientID     string
	TwitterClientSecret string
	TwitterRedirectURI  string
	PostgresURI         string
	RedisURI            string
	FrontendURL         string
	R2                  R2
	SecretKey           string
	CookieName          string

	PollSpec           string // tweet/thread scheduler tick
	EngagementSpec     string // daily engagement sync
	CleanupSpec        string // weekly retention cleanup
	TokenRefreshSpec   string // expiring-token sweep
	ThreadSpacingSecs  int    // delay between thread element publishes
	EngagementRunCap   int    // max tweets fetched per sync run
	PromoteHorizonDays int    // look-ahead bound for queue promotion
}

func LoadConfig() *Config {
	return &Config{
		TwitterClientID:     getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		TwitterRedirectURI:  getEnv("TWITTER_REDIRECT_URI", ""),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", ""),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "schedx_session"),

		PollSpec:           getEnv("POLL_SPEC", "@every 00h01m00s"),
		EngagementSpec:     getEnv("ENGAGEMENT_SPEC", "0 0 4 * * *"),
		CleanupSpec:        getEnv("CLEANUP_SPEC", "0 30 3 * * 0"),
		TokenRefreshSpec:   getEnv("TOKEN_REFRESH_SPEC", "@every 00h10m00s"),
		ThreadSpacingSecs:  getEnvInt("THREAD_SPACING_SECS", 5),
		EngagementRunCap:   getEnvInt("ENGAGEMENT_RUN_CAP", 500),
		PromoteHorizonDays: getEnvInt("PROMOTE_HORIZON_DAYS", 90),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
