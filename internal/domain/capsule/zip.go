package capsule

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// MaxZipFiles and MaxZipTotalBytes bound an imported archive so a crafted
// zip bomb can't exhaust memory during extraction.
const (
	MaxZipFiles      = 500
	MaxZipTotalBytes = 20 << 20 // 20 MiB
)

// ExtractZip reads every regular file entry out of a zip archive into
// BundleFile form, for the import_zip and import_github bundle-ingestor
// entry points.
func ExtractZip(data []byte) ([]BundleFile, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid zip archive: %w", err)
	}

	if len(r.File) > MaxZipFiles {
		return nil, fmt.Errorf("archive has %d entries, exceeds limit of %d", len(r.File), MaxZipFiles)
	}

	var (
		files []BundleFile
		total int64
	)

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		total += int64(f.UncompressedSize64)
		if total > MaxZipTotalBytes {
			return nil, fmt.Errorf("archive exceeds %d uncompressed bytes", MaxZipTotalBytes)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", f.Name, err)
		}

		content, err := io.ReadAll(rc)
		rc.Close()

		if err != nil {
			return nil, fmt.Errorf("read %q: %w", f.Name, err)
		}

		files = append(files, BundleFile{Path: stripArchiveRoot(f.Name), Content: content})
	}

	return files, nil
}

// stripArchiveRoot drops a single leading "<name>/" path component, since
// both a plain zip export and a GitHub codeload archive commonly wrap
// every entry in one top-level directory.
func stripArchiveRoot(name string) string {
	for i, r := range name {
		if r == '/' {
			return name[i+1:]
		}
	}

	return name
}
