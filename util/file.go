package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveJson writes data as JSON to path, creating the parent directories when
// path does not exist yet
func SaveJson(path string, data interface{}) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	bs, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(bs); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
