// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads pipeline credentials from a directory of
// plain-text files, one secret per file: the filename names the secret
// and the trimmed file contents are its value. Only the known key
// names are read; environment variables take precedence over both
// (see cmd/watchdog).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Secret file names recognized under the secrets directory.
const (
	KeyOpenAI     = "openai-api-key"
	KeyAdminToken = "admin-token"
)

// KnownKeys lists every secret file name Load accepts.
var KnownKeys = []string{KeyOpenAI, KeyAdminToken}

// Load reads the known secret files under dir. A missing directory is
// not an error; Load returns an empty map. A file whose name is not in
// KnownKeys is ignored with a warning on stderr, as are unreadable
// files. Empty values are dropped.
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
		if !slices.Contains(KnownKeys, name) {
			fmt.Fprintf(os.Stderr, "warning: ignoring unknown secret file %s (known: %s)\n",
				name, strings.Join(KnownKeys, ", "))
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
