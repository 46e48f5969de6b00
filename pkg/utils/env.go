package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env.<env> (when env is set) and then .env. Variables already
// present in the process environment are never overridden.
func LoadEnv(env string) error {
	files := []string{".env"}
	if env != "" {
		files = append([]string{".env." + env}, files...)
	}

	loaded := 0
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no env file found in %v", files)
	}
	return nil
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv returns 0 when the variable is unset or not a number.
func GetIntEnv(key string) int64 {
	v, err := strconv.ParseInt(GetEnv(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func GetBoolEnv(key string) bool {
	switch strings.ToLower(GetEnv(key)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return false
}

func GetFloatEnv(key string) (float64, bool) {
	v, err := strconv.ParseFloat(GetEnv(key), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
