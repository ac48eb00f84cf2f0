// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package export writes a zstd-compressed tar snapshot of a corpus
// directory, for archival or transfer. Compression uses
// klauspost/compress/zstd, the same streaming encoder the teacher uses
// for its own object storage payloads; archiving itself uses the standard
// library's archive/tar, since nothing in the example pack wraps tar with
// a third-party layer worth adopting here.
package export

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// WriteSnapshot walks corpusDir and writes a zstd-compressed tar archive
// of its contents to w.
func WriteSnapshot(w io.Writer, corpusDir string) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("export: initializing zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	err = filepath.WalkDir(corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(corpusDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("export: building tar header for %s: %w", rel, err)
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("export: writing tar header for %s: %w", rel, err)
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("export: opening %s: %w", path, err)
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("export: writing %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("export: walking %s: %w", corpusDir, err)
	}
	return nil
}

// WriteSnapshotToFile creates (or truncates) outputPath and writes a
// snapshot of corpusDir to it.
func WriteSnapshotToFile(outputPath, corpusDir string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", outputPath, err)
	}
	defer f.Close()
	return WriteSnapshot(f, corpusDir)
}
