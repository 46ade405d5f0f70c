package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Social   SocialConfig
	Twilio   TwilioConfig
	Reminder ReminderConfig
	Web      WebConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	DisplaySecret string

	AccessExpiry    time.Duration
	RefreshExpiry   time.Duration
	DisplayExpiry   time.Duration
	SocialExpiry    time.Duration
	BootstrapExpiry time.Duration
}

type SocialConfig struct {
	AppID       string
	AppSecret   string
	CallbackURL string
	ProfileURL  string
	RedirectURL string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type ReminderConfig struct {
	TickInterval time.Duration
}

type WebConfig struct {
	ConsentFormRedirectURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "4000"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "GlowLabsTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:    getEnv("JWT_SECRET_KEY_ACCESS", ""),
			RefreshSecret:   getEnv("JWT_SECRET_KEY_REFRESH", ""),
			DisplaySecret:   getEnv("JWT_SECRET_KEY_DISPLAY", ""),
			AccessExpiry:    getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry:   getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			DisplayExpiry:   getEnvAsDuration("JWT_DISPLAY_EXPIRY", 7*24*time.Hour),
			SocialExpiry:    getEnvAsDuration("JWT_SOCIAL_EXPIRY", 60*24*time.Hour),
			BootstrapExpiry: getEnvAsDuration("JWT_BOOTSTRAP_EXPIRY", 15*time.Minute),
		},
		Social: SocialConfig{
			AppID:       getEnv("FACEBOOK_APP_ID", ""),
			AppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
			CallbackURL: getEnv("FACEBOOK_CALLBACK_URL", "http://localhost:4000/auth/facebook/callback"),
			ProfileURL:  getEnv("FACEBOOK_PROFILE_URL", "https://graph.facebook.com/me"),
			RedirectURL: getEnv("SOCIAL_LOGIN_REDIRECT_URL", "http://localhost:3000/account/clientprofile"),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("GLOW_LABS_TEXT_NUMBER", ""),
		},
		Reminder: ReminderConfig{
			TickInterval: getEnvAsDuration("REMINDER_TICK_INTERVAL", time.Minute),
		},
		Web: WebConfig{
			ConsentFormRedirectURL: getEnv("CONSENT_FORM_REDIRECT_URL",
				"http://localhost:3000/account/clientprofile/consentform/page1"),
		},
	}

	for name, secret := range map[string]string{
		"JWT_SECRET_KEY_ACCESS":  cfg.JWT.AccessSecret,
		"JWT_SECRET_KEY_REFRESH": cfg.JWT.RefreshSecret,
		"JWT_SECRET_KEY_DISPLAY": cfg.JWT.DisplaySecret,
	} {
		if secret == "" {
			return nil, fmt.Errorf("%s environment variable is required", name)
		}
		if len(secret) < 32 {
			return nil, fmt.Errorf("%s must be at least 32 bytes (256 bits)", name)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
