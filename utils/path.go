package utils

import (
	"log"
	"os"
	"path/filepath"
)

func GetProjectRoot() string {
	if env := os.Getenv("TRAVEL_INSIGHT_ROOT"); env != "" {
		return env
	}
	executable, err := os.Executable()
	if err != nil {
		log.Fatalf("Failed to get executable: %v", err)
	}
	dir := filepath.Dir(executable)
	return filepath.Clean(filepath.Join(dir, ".."))
}

func EnsureDirExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}
