package subaru

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// RepoEntry represents a single package in the repository index.
type RepoEntry struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Revision    string   `json:"revision"`
	Arch        string   `json:"arch"`
	Filename    string   `json:"filename"`
	Size        int64    `json:"size"`
	B3Sum       string   `json:"b3sum"`
	Depends     []string `json:"depends,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ParseRepoIndex decodes a zstd-compressed JSON index.
func ParseRepoIndex(data []byte) ([]RepoEntry, error) {
	var index []RepoEntry
	if len(data) == 0 {
		return index, nil
	}
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress index: %w", err)
	}
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return index, nil
}

// EncodeRepoIndex produces the zstd-compressed JSON form of an index.
func EncodeRepoIndex(index []RepoEntry) ([]byte, error) {
	raw, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer zw.Close()
	return zw.EncodeAll(raw, nil), nil
}

const indexObject = "repo-index.json.zst"

// FetchRemoteIndex downloads and parses the repository index. The public
// binary mirror is tried first; R2 is the fallback when credentials are
// configured.
func FetchRemoteIndex(cfg *Config) ([]RepoEntry, error) {
	ctx := context.Background()
	var data []byte
	var err error

	hasCreds := cfg.Values["R2_ACCESS_KEY_ID"] != "" && cfg.Values["R2_SECRET_ACCESS_KEY"] != ""

	if BinaryMirror != "" {
		url := fmt.Sprintf("%s/%s", BinaryMirror, indexObject)
		dest := filepath.Join(os.TempDir(), "subaru-index.json.zst")
		if dlErr := downloadFileQuiet(url, dest); dlErr == nil {
			data, err = os.ReadFile(dest)
			os.Remove(dest)
		} else {
			debugf("Mirror fetch failed: %v, falling back to R2 if available\n", dlErr)
			err = dlErr
		}
	}

	if len(data) == 0 && hasCreds {
		r2, r2Err := NewR2Client(cfg)
		if r2Err == nil {
			data, err = r2.DownloadFile(ctx, indexObject)
		} else {
			debugf("R2 client initialization skipped: %v\n", r2Err)
			if err == nil {
				err = r2Err
			}
		}
	}

	if err != nil || len(data) == 0 {
		if err == nil {
			err = fmt.Errorf("no mirror or R2 credentials configured")
		}
		return nil, fmt.Errorf("failed to fetch remote index: %w", err)
	}
	return ParseRepoIndex(data)
}

// loadCachedIndex reads the on-disk index cache. A missing cache is not
// an error; it just means a sync has never run.
func loadCachedIndex() ([]RepoEntry, error) {
	data, err := os.ReadFile(IndexCache)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseRepoIndex(data)
}

// SyncIndex fetches the remote index and atomically replaces the local
// cache. Runs under the system lock so concurrent syncs cannot tear the
// cache file.
func SyncIndex(cfg *Config) ([]RepoEntry, error) {
	unlock, err := acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	colArrow.Print("-> ")
	colSuccess.Println("Syncing repository index")

	index, err := FetchRemoteIndex(cfg)
	if err != nil {
		return nil, err
	}

	data, err := EncodeRepoIndex(index)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(IndexCache), 0755); err != nil {
		return nil, err
	}
	tmp := IndexCache + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, IndexCache); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Index updated: %d packages\n", len(index))
	if Verbose {
		for _, entry := range index {
			colInfo.Printf("  %s %s-%s\n", entry.Name, entry.Version, entry.Revision)
		}
	}
	return index, nil
}
