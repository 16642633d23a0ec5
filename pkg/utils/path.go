package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// CreateFolder makes sure every given directory exists before the app starts
// writing into it.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", folder, err)
		}
	}
	return nil
}

// GetMediaStoragePath returns the media path for a specific target, creating
// it on demand.
func GetMediaStoragePath(baseDir, targetID string) string {
	path := filepath.Join(baseDir, "media", targetID)
	_ = os.MkdirAll(path, 0755)
	return path
}
