// Package zipper archives an export directory into a single ZIP file.
package zipper

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// Archive writes every regular file below dir into zipName. Entries are
// stored under the directory's base name in sorted path order, so the
// archive layout does not depend on the file system.
func Archive(dir, zipName string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walk %v", dir)
	}
	sort.Strings(files)

	zf, err := os.Create(zipName)
	if err != nil {
		return errors.Wrap(err, "create")
	}
	w := zip.NewWriter(zf)
	base := filepath.Base(dir)
	for _, path := range files {
		if err := add(w, base, dir, path); err != nil {
			w.Close()
			zf.Close()
			return err
		}
	}

	if err := w.Close(); err != nil {
		zf.Close()
		return errors.Wrap(err, "unable to close ZIP writer")
	}
	if err := zf.Close(); err != nil {
		return errors.Wrap(err, "unable to close ZIP file")
	}
	return nil
}

func add(w *zip.Writer, base, dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	fh, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	fh.Name = filepath.ToSlash(filepath.Join(base, rel))
	fh.Method = zip.Deflate

	f, err := w.CreateHeader(fh)
	if err != nil {
		return errors.Wrapf(err, "unable to create ZIP entry %q", fh.Name)
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := io.Copy(f, in); err != nil {
		return errors.Wrapf(err, "copy %v", path)
	}
	return nil
}
