package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var once sync.Once

// LoadEnv loads environment variables from a .env file in the working directory
// or its parent, if one exists. Already-set variables are not overridden.
// It returns the file that was loaded, or "" when none was found.
func LoadEnv() (string, error) {
	var (
		loaded  string
		loadErr error
	)
	once.Do(func() {
		loaded, loadErr = loadEnvFrom(".env", filepath.Join("..", ".env"))
	})
	return loaded, loadErr
}

func loadEnvFrom(candidates ...string) (string, error) {
	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return "", err
		}
		return envFile, nil
	}
	return "", nil
}
