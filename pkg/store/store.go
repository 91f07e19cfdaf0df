// Package store discovers rule documents on disk and loads them into an
// ordered, de-duplicated rule snapshot.
//
// Loading never fails as a whole: missing directories, unreadable files and
// rules rejected by the filter are skipped and logged at debug level.
package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/macropower/agentrules/pkg/log"
	"github.com/macropower/agentrules/pkg/rule"
)

// Filter decides whether a parsed rule is kept.
type Filter interface {
	Keep(r *rule.Rule) (bool, error)
}

// Store loads rules from directories.
type Store struct {
	filter Filter
}

// Option configures a [Store].
type Option func(*Store)

// WithFilter drops rules for which f returns false or an error.
func WithFilter(f Filter) Option {
	return func(s *Store) {
		s.filter = f
	}
}

// New creates a new [Store].
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load walks each directory in order and returns the rules found, in walk
// order. A file reachable from more than one directory is loaded once, from
// the first directory that reaches it, including through a symlinked root.
// A root that is a symlink is followed, and its rules keep paths below the
// root as given.
func (s *Store) Load(ctx context.Context, dirs []string) []*rule.Rule {
	logger := log.WithContext(ctx)

	var (
		rules []*rule.Rule
		seen  = map[string]struct{}{}
	)

	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			logger.Debug("skip rule directory",
				slog.String("dir", dir),
				slog.Any("error", err),
			)

			continue
		}

		// WalkDir does not follow a symlinked root, so walk its target and
		// report paths below the root as given.
		walkRoot := root

		resolved, err := filepath.EvalSymlinks(root)
		if err == nil {
			walkRoot = resolved
		}

		err = filepath.WalkDir(walkRoot, func(walked string, d fs.DirEntry, err error) error {
			path := underRoot(root, walkRoot, walked)

			if err != nil {
				if d != nil && d.IsDir() && walked != walkRoot {
					logger.Debug("skip unreadable directory",
						slog.String("path", path),
						slog.Any("error", err),
					)

					return fs.SkipDir
				}

				return err
			}

			if d.IsDir() || !strings.HasSuffix(d.Name(), rule.Ext) {
				return nil
			}

			if _, ok := seen[walked]; ok {
				logger.Debug("skip duplicate rule", slog.String("path", path))
				return nil
			}

			r, ok := s.load(logger, path)
			if !ok {
				return nil
			}

			seen[walked] = struct{}{}
			rules = append(rules, r)

			return nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("rule directory does not exist", slog.String("dir", root))
			} else {
				logger.Debug("skip rule directory",
					slog.String("dir", root),
					slog.Any("error", err),
				)
			}
		}
	}

	logger.Debug("loaded rules",
		slog.Int("count", len(rules)),
		slog.Any("dirs", dirs),
	)

	return rules
}

// underRoot maps walked, a path below walkRoot, to the same path below root.
func underRoot(root, walkRoot, walked string) string {
	if root == walkRoot {
		return walked
	}

	rel, err := filepath.Rel(walkRoot, walked)
	if err != nil {
		return walked
	}

	return filepath.Join(root, rel)
}

func (s *Store) load(logger *slog.Logger, path string) (*rule.Rule, bool) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: Paths come from the walked rule directories.
	if err != nil {
		logger.Debug("skip unreadable rule",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return nil, false
	}

	r := rule.Parse(path, string(raw))

	if s.filter != nil {
		keep, err := s.filter.Keep(r)
		if err != nil {
			logger.Debug("filter failed, skip rule",
				slog.String("path", path),
				slog.Any("error", err),
			)

			return nil, false
		}

		if !keep {
			logger.Debug("filter excluded rule", slog.String("path", path))
			return nil, false
		}
	}

	return r, true
}
