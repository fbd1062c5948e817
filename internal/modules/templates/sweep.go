package templates

import (
	"context"
	"strings"
	"time"

	"github.com/formvoice/core/internal/pkg/blobstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepResult summarizes one orphan sweep.
type SweepResult struct {
	Scanned int      `json:"scanned"`
	Removed []string `json:"removed"`
}

// SweepOrphans removes stored template files that no active template row
// references. Files younger than grace are kept so uploads still between
// storage and insert are not lost.
func (s *Service) SweepOrphans(ctx context.Context, grace time.Duration) (SweepResult, error) {
	var (
		objects    []blobstore.Object
		referenced map[string]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		objects, err = s.store.List(gctx, s.bucket, pathPrefix)
		return err
	})
	g.Go(func() error {
		var err error
		referenced, err = s.ReferencedPaths(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(objects), Removed: []string{}}
	cutoff := s.now().Add(-grace)
	var stale []string
	for _, obj := range objects {
		p := strings.TrimPrefix(obj.Path, "/")
		if _, ok := referenced[p]; ok || p == defaultPath {
			continue
		}
		if !obj.LastModified.IsZero() && obj.LastModified.After(cutoff) {
			continue
		}
		stale = append(stale, p)
	}
	if len(stale) == 0 {
		return res, nil
	}
	if err := s.store.Remove(ctx, s.bucket, stale...); err != nil {
		return res, err
	}
	res.Removed = stale
	s.log.Info("orphan template files removed", zap.Int("count", len(stale)))
	return res, nil
}
