package subaru

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"lukechampine.com/blake3"
)

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second
	return &http.Client{
		Transport: transport,
		Timeout:   300 * time.Second, // large tarballs on slow mirrors
	}
}

type downloadOptions struct {
	Quiet bool // Quiet suppresses all progress output
}

func downloadFile(url, destFile string) error {
	return downloadFileWithOptions(url, destFile, downloadOptions{Quiet: false})
}

func downloadFileQuiet(url, destFile string) error {
	return downloadFileWithOptions(url, destFile, downloadOptions{Quiet: true})
}

func downloadFileWithOptions(url, destFile string, opt downloadOptions) error {
	if err := os.MkdirAll(filepath.Dir(destFile), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", destFile, err)
	}
	lockPath := destFile + ".lock"

	lFile, err := os.Create(lockPath)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer lFile.Close()

	// Blocks if another process is downloading the same file.
	if err := unix.Flock(int(lFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock for download: %w", err)
	}
	defer unix.Flock(int(lFile.Fd()), unix.LOCK_UN)

	// The file may have appeared while we waited for the lock.
	if _, err := os.Stat(destFile); err == nil {
		debugf("File %s appeared after acquiring lock, skipping download.\n", destFile)
		_ = os.Remove(lockPath)
		return nil
	}

	defer func() {
		if _, err := os.Stat(destFile); err == nil {
			_ = os.Remove(lockPath)
		}
	}()

	debugf("Downloading %s -> %s\n", url, destFile)

	client := newHTTPClient()
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	tmp := destFile + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", tmp, err)
	}

	var dst io.Writer = out
	if !opt.Quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(destFile))
		dst = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write to destination file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destFile)
}

// ComputeChecksum returns the BLAKE3 checksum of a file.
func ComputeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// fetchBinaryPackage downloads a package tarball into BinDir and verifies
// its checksum against the index entry. A cached tarball with a good
// checksum is reused; a bad one is discarded and refetched.
func fetchBinaryPackage(entry RepoEntry, cfg *Config, quiet bool) (string, error) {
	destPath := filepath.Join(BinDir, entry.Filename)

	if _, err := os.Stat(destPath); err == nil {
		sum, sErr := ComputeChecksum(destPath)
		if sErr == nil && sum == entry.B3Sum {
			debugf("Using cached tarball %s\n", destPath)
			return destPath, nil
		}
		os.Remove(destPath)
	}

	var fetchErr error
	if BinaryMirror != "" {
		url := fmt.Sprintf("%s/%s", BinaryMirror, entry.Filename)
		opt := downloadOptions{Quiet: quiet}
		fetchErr = downloadFileWithOptions(url, destPath, opt)
	} else {
		fetchErr = fmt.Errorf("no SUBARU_MIRROR configured")
	}

	if fetchErr != nil {
		r2, r2Err := NewR2Client(cfg)
		if r2Err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", entry.Filename, fetchErr)
		}
		if err := r2.DownloadToFile(context.Background(), entry.Filename, destPath); err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", entry.Filename, err)
		}
	}

	sum, err := ComputeChecksum(destPath)
	if err != nil {
		return "", err
	}
	if entry.B3Sum != "" && sum != entry.B3Sum {
		os.Remove(destPath)
		return "", fmt.Errorf("checksum mismatch for %s: got %s want %s", entry.Filename, sum, entry.B3Sum)
	}
	return destPath, nil
}
