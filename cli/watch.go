package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/fsnotify/fsnotify"
	"github.com/goto/salt/log"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

func viewWatchCommand(cfg *Config) *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print the view whenever the records file changes",
		Example: heredoc.Doc(`
			$ sieve view watch -f questions.yaml --sort created_at --desc
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.changed = cmd.Flags().Changed
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)

			records, err := readRecords(opts.file)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.close()

			if err := runApply(cmd.Context(), s, opts, records, os.Stdout); err != nil {
				return err
			}
			return watchFile(cmd.Context(), opts.file, logger, func() {
				records, err := readRecords(opts.file)
				if err != nil {
					logger.Error("re-read records", "file", opts.file, "err", err)
					return
				}
				fmt.Println()
				if err := runApply(cmd.Context(), s, opts, records, os.Stdout); err != nil {
					logger.Error("re-apply view", "file", opts.file, "err", err)
				}
			})
		},
	}

	addViewFlags(cmd, &opts)
	return cmd
}

// watchFile calls onChange after path is written, created or replaced, at
// most once per debounce window. It blocks until ctx is done. The parent
// directory is watched so editors that save through a rename are seen.
func watchFile(ctx context.Context, path string, logger log.Logger, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("watching records file", "file", abs)

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("records watcher error", "err", err)

		case <-timer.C:
			onChange()
		}
	}
}
