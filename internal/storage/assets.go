package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jsh-team/chunkbroker/internal/utils/filesystem"
)

// GetAssetPath returns where a fetched asset is stored under dir:
// <dir>/<domain>/<hash>/<url path>
func GetAssetPath(dir, assetURL, hash string) (string, error) {
	domain, err := filesystem.ExtractDomain(assetURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract domain from URL %s: %w", assetURL, err)
	}
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %s: %w", assetURL, err)
	}
	if hash == "" {
		return "", fmt.Errorf("empty content hash for %s", assetURL)
	}

	return filepath.Join(dir, domain, filesystem.CleanPathComponent(hash), filesystem.CleanSourcePath(u.Path)), nil
}

// SaveAsset writes body to its content-addressed path and returns the path.
// An asset already on disk is not rewritten.
func SaveAsset(dir, assetURL, hash string, body []byte) (string, error) {
	fullPath, err := GetAssetPath(dir, assetURL, hash)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(fullPath); err == nil {
		return fullPath, nil
	}

	if err := os.WriteFile(fullPath, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", fullPath, err)
	}
	return fullPath, nil
}
