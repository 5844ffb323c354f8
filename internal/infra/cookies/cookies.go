// Package cookies selects the Netscape cookie file handed to yt-dlp.
package cookies

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCookies is returned when the cookie directory holds no .txt file.
var ErrNoCookies = errors.New("no cookie files found")

// FromDir returns a provider that picks a random .txt file from dir on
// every call, so load spreads across the available accounts.
func FromDir(dir string) func() (string, error) {
	return func() (string, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("failed to read cookie directory: %w", err)
		}

		var files []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
		if len(files) == 0 {
			return "", fmt.Errorf("%w in %s", ErrNoCookies, dir)
		}
		return files[rand.IntN(len(files))], nil
	}
}

// Static returns a provider that always yields path.
func Static(path string) func() (string, error) {
	return func() (string, error) {
		return path, nil
	}
}
