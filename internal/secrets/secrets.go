// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the file name is the key and the trimmed file
// contents are the value.
//
// The server reads its optional bearer token (key "upload-token") here.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UploadToken is the default key for the server's bearer token.
const UploadToken = "upload-token"

// Load reads all files in dir and returns a map of file name to trimmed
// contents. A missing directory is not an error and yields an empty map.
// Dotfiles, subdirectories and empty files are skipped. Unreadable files
// produce a warning on stderr and are skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Lookup returns the secret stored under key in dir, or "" when absent.
func Lookup(dir, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	s, err := Load(dir)
	if err != nil {
		return "", err
	}
	return s[key], nil
}
