package subaru

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config struct
type Config struct {
	Values map[string]string
}

// loadConfig reads /etc/subaru.conf and applies defaults.
// The format is plain KEY=value lines; quotes around values are stripped.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Merge SUBARU_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SUBARU_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// initConfig resolves the global paths from the loaded configuration.
// SUBARU_ROOT relocates the whole tree, which is how the tests and
// chroot installs run without touching the live system.
func initConfig(cfg *Config) {
	rootDir = cfg.Values["SUBARU_ROOT"]
	if rootDir == "" {
		rootDir = "/"
	}

	CacheDir = filepath.Join(rootDir, "var/cache/subaru")
	BinDir = filepath.Join(CacheDir, "bin")
	Installed = filepath.Join(rootDir, "var/db/subaru/installed")
	IndexCache = filepath.Join(rootDir, "var/db/subaru/repo-index.json.zst")
	LockFile = filepath.Join(rootDir, "etc/subaru.lock")

	BinaryMirror = strings.TrimSuffix(cfg.Values["SUBARU_MIRROR"], "/")

	if cfg.Values["SUBARU_DEBUG"] == "1" {
		Debug = true
	}
	if cfg.Values["SUBARU_VERBOSE"] == "1" {
		Verbose = true
	}
}

func debugf(format string, args ...interface{}) {
	if Debug {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
