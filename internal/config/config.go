package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AnswerTimeSec  float64
	LockoutTimeSec float64
	PublicURL      string // overrides LAN address discovery when set
	OpenBrowser    bool
}

// FromEnv loads an optional .env file and reads configuration from the
// environment, falling back to defaults.
func FromEnv() Config {
	_ = godotenv.Load()
	c := Config{}
	c.Port = getenv("PORT", "3000")
	c.AnswerTimeSec = getfloat("ANSWER_TIME_SEC", 5)
	c.LockoutTimeSec = getfloat("LOCKOUT_TIME_SEC", 10)
	c.PublicURL = os.Getenv("PUBLIC_URL")
	c.OpenBrowser = getenv("OPEN_BROWSER", "true") == "true"
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
