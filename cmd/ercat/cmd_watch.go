package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/digest"
	"github.com/hlop3z/ercat/internal/loader"
)

// Editors write files in bursts; changes closer than this are one rebuild.
const watchDebounce = 200 * time.Millisecond

// watchCmd rebuilds the catalog whenever a declaration file changes.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the catalog on declaration change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return sess.watch(ctx, cmd.OutOrStdout())
		},
	}
}

// watch prints the fingerprint of the catalog, or the build error, on start
// and after every change below the schemas directory until ctx is done.
func (s *session) watch(ctx context.Context, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return alerr.Wrap(alerr.EInternalError, err, "file watcher failed")
	}
	defer watcher.Close()

	if err := addDirs(watcher, s.cfg.SchemasDir); err != nil {
		return err
	}
	fmt.Fprintln(w, cli.KeyValue("watching", s.String()))

	last := s.rebuild(w, "")
	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// new subdirectories must be watched too
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addDirs(watcher, event.Name)
				}
			}
			if relevant(event) {
				timer = time.After(watchDebounce)
			}
		case <-timer:
			timer = nil
			last = s.rebuild(w, last)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

// rebuild builds the catalog and reports it when its root differs from
// last. It returns the new root, or "" on failure.
func (s *session) rebuild(w io.Writer, last string) string {
	catalog, files, err := s.build()
	if err != nil {
		fmt.Fprint(w, cli.FormatError(err))
		return ""
	}
	hash, err := digest.Compute(catalog)
	if err != nil {
		fmt.Fprint(w, cli.FormatError(err))
		return ""
	}
	if hash.Root == last {
		s.logger.Debug("catalog unchanged", "root", hash.Root)
		return last
	}
	stamp := time.Now().Format(time.TimeOnly)
	fmt.Fprintf(w, "%s %s %s\n", cli.Dim(stamp), cli.Success("built"),
		cli.KeyValue(cli.FormatCount(len(files), "file", "files"), truncateHash(hash.Root)))
	return hash.Root
}

// addDirs watches root and every directory below it that the loader would
// read.
func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return alerr.Wrap(alerr.ErrLoadFailed, err, "cannot watch declaration directory").
				WithLocation(path, 0, 0)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), "_") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return alerr.Wrap(alerr.ErrLoadFailed, err, "cannot watch declaration directory").
				WithLocation(path, 0, 0)
		}
		return nil
	})
}

// relevant reports whether event can change the catalog.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	if ext == "" {
		// removed or renamed directories
		return event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	}
	return slices.Contains(loader.Extensions, ext)
}
