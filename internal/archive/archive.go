// Package archive bundles finished batch results into a single zip.
package archive

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/aliskhannn/lumina/internal/model"
)

const (
	DefaultFolder = "lumina_batch_edit"
	DefaultPrefix = "lumina_edit"
	DefaultName   = "lumina_batch_photos.zip"
)

// Options controls the layout inside the archive.
type Options struct {
	Folder string // base folder holding every file
	Prefix string // file name prefix, followed by _<position>.jpg
}

func (o Options) withDefaults() Options {
	if o.Folder == "" {
		o.Folder = DefaultFolder
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	return o
}

// FileName returns the archive entry name for the item at a 1-based queue
// position.
func FileName(prefix string, position int) string {
	return fmt.Sprintf("%s_%d.jpg", prefix, position)
}

// Package writes every done item with an artifact into a zip on w and
// returns the number of files written. Other items are skipped.
func Package(w io.Writer, items []model.BatchItem, opts Options) (int, error) {
	opts = opts.withDefaults()
	modified := time.Now()

	zw := zip.NewWriter(w)

	if _, err := zw.CreateHeader(&zip.FileHeader{
		Name:     opts.Folder + "/",
		Modified: modified,
	}); err != nil {
		return 0, fmt.Errorf("failed to create folder entry: %w", err)
	}

	written := 0
	for _, item := range items {
		if item.Status != model.StatusDone || len(item.Output) == 0 {
			continue
		}

		name := path.Join(opts.Folder, FileName(opts.Prefix, item.Position))
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store, // JPEG data does not deflate
			Modified: modified,
		})
		if err != nil {
			return written, fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if _, err := fw.Write(item.Output); err != nil {
			return written, fmt.Errorf("failed to write entry %s: %w", name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return written, nil
}
