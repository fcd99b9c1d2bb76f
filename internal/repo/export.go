package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/followledger/followledger/internal/extractors"
	"github.com/followledger/followledger/internal/models"
	"github.com/followledger/followledger/internal/utils"
)

// ExportReader loads relationship snapshots from an unpacked account-data
// export directory.
type ExportReader struct {
	dir           string
	followersGlob string
	followingFile string
	followingKey  string
	extractor     *extractors.ExportExtractor
	logger        *slog.Logger
	clock         utils.Clock
}

// ExportReaderConfig names the export files relative to Dir.
type ExportReaderConfig struct {
	Dir           string
	FollowersGlob string
	FollowingFile string
	FollowingKey  string
	// Clock stamps loaded snapshots; nil means the system clock.
	Clock         utils.Clock
}

// NewExportReader constructs an ExportReader.
func NewExportReader(cfg ExportReaderConfig, extractor *extractors.ExportExtractor, logger *slog.Logger) *ExportReader {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extractors.NewExportExtractor(logger, false)
	}
	if cfg.Clock == nil {
		cfg.Clock = utils.SystemClock{}
	}
	if cfg.FollowingKey == "" {
		cfg.FollowingKey = extractors.FollowingKey
	}
	return &ExportReader{
		dir:           cfg.Dir,
		followersGlob: cfg.FollowersGlob,
		followingFile: cfg.FollowingFile,
		followingKey:  cfg.FollowingKey,
		extractor:     extractor,
		logger:        logger,
		clock:         cfg.Clock,
	}
}

// LoadSnapshot reads the followers and following files concurrently. Followers
// split across several files are concatenated in lexical file order.
func (r *ExportReader) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var followers, following []models.Relation

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		paths, err := filepath.Glob(filepath.Join(r.dir, r.followersGlob))
		if err != nil {
			return fmt.Errorf("glob followers: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no followers files match %s in %s", r.followersGlob, r.dir)
		}
		slices.Sort(paths)
		for _, path := range paths {
			rs, err := r.readFile(ctx, path, "")
			if err != nil {
				return err
			}
			followers = append(followers, rs...)
		}
		return nil
	})
	g.Go(func() error {
		rs, err := r.readFile(ctx, filepath.Join(r.dir, r.followingFile), r.followingKey)
		if err != nil {
			return err
		}
		following = rs
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}

	r.logger.Info("export snapshot loaded",
		slog.String("dir", r.dir),
		slog.Int("followers", len(followers)),
		slog.Int("following", len(following)),
	)

	return models.Snapshot{
		Following: models.NewCollection(following),
		Followers: models.NewCollection(followers),
		TakenAt:   r.clock.Now().UTC(),
	}, nil
}

func (r *ExportReader) readFile(ctx context.Context, path, key string) ([]models.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	rs, err := r.extractor.Extract(data, key)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	r.logger.Debug("export file parsed", slog.String("path", path), slog.Int("relations", len(rs)))
	return rs, nil
}
