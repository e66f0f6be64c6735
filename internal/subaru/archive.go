package subaru

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
	"golang.org/x/sys/unix"
)

// extractPackage unpacks a package tarball onto destRoot and returns the
// manifest: every path it created, relative to the root, directories
// last so removal can walk the list in order.
func extractPackage(tarballPath, destRoot string) ([]string, error) {
	f, err := os.Open(tarballPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", tarballPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(tarballPath, ".tar.gz") || strings.HasSuffix(tarballPath, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", tarballPath, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(tarballPath, ".tar.bz2"):
		r = bzip2.NewReader(f)
	case strings.HasSuffix(tarballPath, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader for %s: %w", tarballPath, err)
		}
		r = xzr
	case strings.HasSuffix(tarballPath, ".tar.zst"):
		zst, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", tarballPath, err)
		}
		defer zst.Close()
		r = zst
	case strings.HasSuffix(tarballPath, ".tar"):
		// No compression
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", tarballPath)
	}

	var files, dirs []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar header in %s: %w", tarballPath, err)
		}

		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return nil, fmt.Errorf("error skipping extended header data in %s: %w", tarballPath, err)
			}
			continue
		}

		name := strings.TrimPrefix(filepath.Clean(hdr.Name), "./")
		if name == "" || name == "." {
			continue
		}
		targetPath := filepath.Join(destRoot, name)
		if !strings.HasPrefix(targetPath, filepath.Clean(destRoot)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("illegal file path in archive: %s", hdr.Name)
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create parent dir for %s: %w", targetPath, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(hdr.Mode)); err != nil {
				return nil, fmt.Errorf("failed to create dir %s: %w", targetPath, err)
			}
			if os.Geteuid() == 0 {
				_ = os.Chown(targetPath, hdr.Uid, hdr.Gid)
			}
			dirs = append(dirs, "/"+name)
		case tar.TypeReg:
			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return nil, fmt.Errorf("failed to create file %s: %w", targetPath, err)
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return nil, fmt.Errorf("failed to write file %s: %w", targetPath, err)
			}
			outFile.Close()
			if err := os.Chtimes(targetPath, hdr.AccessTime, hdr.ModTime); err != nil {
				debugf("Warning: failed to set times for %s: %v\n", targetPath, err)
			}
			if os.Geteuid() == 0 {
				_ = os.Chown(targetPath, hdr.Uid, hdr.Gid)
			}
			files = append(files, "/"+name)
		case tar.TypeSymlink:
			_ = os.Remove(targetPath)
			if err := os.Symlink(hdr.Linkname, targetPath); err != nil {
				return nil, fmt.Errorf("failed to create symlink %s -> %s: %w", targetPath, hdr.Linkname, err)
			}
			if os.Geteuid() == 0 {
				_ = unix.Lchown(targetPath, hdr.Uid, hdr.Gid)
			}
			files = append(files, "/"+name)
		default:
			debugf("Skipping unsupported tar entry type %c: %s\n", hdr.Typeflag, hdr.Name)
		}
	}

	// Deepest directories last so reverse iteration removes leaves first.
	sort.Strings(dirs)
	return append(files, dirs...), nil
}
