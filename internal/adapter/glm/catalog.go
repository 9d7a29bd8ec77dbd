package glm

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// DirCatalog lists the scan files found under a directory tree. Files whose
// names do not follow the scan naming convention are ignored.
type DirCatalog struct {
	dir    string
	logger *slog.Logger
}

// NewDirCatalog creates a catalog rooted at dir.
func NewDirCatalog(dir string, logger *slog.Logger) *DirCatalog {
	return &DirCatalog{dir: dir, logger: logger}
}

// Scans returns every scan under the directory ordered by begin time. Scans
// sharing a begin time are ordered by file name.
func (c *DirCatalog) Scans(ctx context.Context) ([]domain.ScanRecord, error) {
	var scans []domain.ScanRecord
	ignored := 0

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		meta, err := ParseFilename(name)
		if err != nil {
			ignored++
			c.logger.Debug("ignoring non-scan file", "path", path)
			return nil
		}
		scans = append(scans, domain.ScanRecord{
			ID:        name,
			Source:    path,
			Created:   meta.Created,
			BeginTime: meta.BeginTime,
			EndTime:   meta.EndTime,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk scan directory %s: %w", c.dir, err)
	}

	sort.Slice(scans, func(i, j int) bool {
		if !scans[i].BeginTime.Equal(scans[j].BeginTime) {
			return scans[i].BeginTime.Before(scans[j].BeginTime)
		}
		return scans[i].ID < scans[j].ID
	})

	c.logger.Info("scan catalog loaded", "dir", c.dir, "scans", len(scans), "ignored", ignored)
	return scans, nil
}
