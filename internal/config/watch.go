package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/cloudvault/vaultd/internal/logger"
)

// Watch watches configPath for writes and calls onChange with the re-loaded
// Config each time the file is rewritten, letting SessionTimeout, ChunkSize,
// and the log level be adjusted without a restart. It returns immediately;
// the watch loop runs until the process exits or the returned stop func is
// called. Uses fsnotify directly rather than viper's built-in WatchConfig,
// grounded on the teacher's cmd/dittofs/commands/logs.go watcher loop.
//
// configPath must be the actual file path (not a search directory); if
// empty, Watch is a no-op, since there is nothing to watch.
func Watch(configPath string, portFlag int, onChange func(*Config)) (stop func(), err error) {
	if configPath == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(configPath, portFlag)
				if err != nil {
					logger.Warn("config: reload failed, keeping previous settings", "error", err)
					continue
				}
				logger.Info("config: reloaded", "path", configPath)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
