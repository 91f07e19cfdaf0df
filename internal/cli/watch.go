package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/session"
)

// ErrNothingToWatch is returned when none of the rule directories exist.
var ErrNothingToWatch = errors.New("no rule directories to watch")

type WatchArgs struct {
	*RootArgs
}

func NewWatchArgs(rootArgs *RootArgs) *WatchArgs {
	return &WatchArgs{RootArgs: rootArgs}
}

func NewWatchCmd(rootArgs *RootArgs) *cobra.Command {
	args := NewWatchArgs(rootArgs)

	return &cobra.Command{
		Use:   "watch",
		Short: "Reload rules whenever a rule document changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, args)
		},
	}
}

func runWatch(cmd *cobra.Command, wa *WatchArgs) error {
	ctx := cmd.Context()

	opts, err := wa.sessionOptions()
	if err != nil {
		return err
	}

	resolver := session.New(opts...)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("error", err))
		}
	}()

	watched := 0
	for _, dir := range resolver.Directories() {
		watched += watchTree(watcher, dir)
	}

	if watched == 0 {
		return ErrNothingToWatch
	}

	opts = append(opts, session.WithNotifier(logNotifier{}))
	w := &sessionWatcher{
		out:  cmd.OutOrStdout(),
		opts: opts,
	}

	w.restart(ctx)

	return w.run(ctx, watcher)
}

type sessionWatcher struct {
	out  io.Writer
	opts []session.Option
}

func (w *sessionWatcher) run(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRuleChange(watcher, event) {
				continue
			}

			slog.DebugContext(ctx, "rule change detected",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)

			w.restart(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}

// isRuleChange reports whether event changes the set of rules. Created
// directories are added to the watcher.
func isRuleChange(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	if event.Has(fsnotify.Create) && watchTree(watcher, event.Name) > 0 {
		return true
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A removed directory may have held rules.
		return filepath.Ext(event.Name) == rule.Ext || filepath.Ext(event.Name) == ""
	}

	return filepath.Ext(event.Name) == rule.Ext
}

// restart starts a fresh session and prints its sources.
func (w *sessionWatcher) restart(ctx context.Context) {
	s := session.New(w.opts...)
	s.Start(ctx)

	printSources(w.out, s.Sources())
}

func printSources(w io.Writer, sources []string) {
	if len(sources) == 0 {
		mustN(fmt.Fprintln(w, "No rules loaded"))

		return
	}

	mustN(fmt.Fprintf(w, "Loaded %d rule(s):\n", len(sources)))
	for _, src := range sources {
		mustN(fmt.Fprintf(w, "  %s\n", src))
	}
}

// watchTree adds root and every directory below it to watcher, and returns
// the number of directories added.
func watchTree(watcher *fsnotify.Watcher, root string) int {
	added := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			return fs.SkipDir
		}

		if !d.IsDir() {
			return nil
		}

		err = watcher.Add(path)
		if err != nil {
			slog.Warn("watch directory", slog.String("path", path), slog.Any("error", err))

			return nil
		}

		added++

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("skip watch root", slog.String("path", root), slog.Any("error", err))
	}

	return added
}
