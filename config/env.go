package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFiles are the .env locations read by LoadEnv, in priority order.
func EnvFiles() []string {
	return []string{".env", filepath.Join(Dir(), ".env")}
}

// LoadEnv loads every existing file from EnvFiles. Variables already set in
// the environment win.
func LoadEnv() error {
	var found []string
	for _, p := range EnvFiles() {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if len(found) == 0 {
		return nil
	}
	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

type APIKeys struct {
	OpenAI string
	Groq   string
}

func Keys() APIKeys {
	return APIKeys{
		OpenAI: os.Getenv("OPENAI_API_KEY"),
		Groq:   os.Getenv("GROQ_API_KEY"),
	}
}
