package vault

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Bundler packages archive files into a single zip, streaming each file so
// the concatenated archive never has to fit in memory.
type Bundler struct {
	Root     string
	MaxBytes int64 // total uncompressed ceiling, 0 = unlimited
}

// WriteZip streams the given vault-relative paths into w. Sizes are summed
// up front: when the total would exceed the ceiling, ErrExportTooLarge is
// returned before a single byte is written, so the caller can ask the user
// to narrow the request.
func (b *Bundler) WriteZip(w io.Writer, relPaths []string) error {
	var total int64
	for _, rel := range relPaths {
		info, err := os.Stat(filepath.Join(b.Root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		total += info.Size()
	}
	if b.MaxBytes > 0 && total > b.MaxBytes {
		return fmt.Errorf("%d bytes requested, ceiling is %d: %w", total, b.MaxBytes, ErrExportTooLarge)
	}

	zw := zip.NewWriter(w)
	for _, rel := range relPaths {
		if err := b.addFile(zw, rel); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func (b *Bundler) addFile(zw *zip.Writer, rel string) error {
	f, err := os.Open(filepath.Join(b.Root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	entry, err := zw.Create(rel)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", rel, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("write zip entry %s: %w", rel, err)
	}
	return nil
}
