package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/DucAnhBoDoi/Music-App/logger"
)

// Watch watches the .env file and invokes onChange with a freshly parsed
// key/value map whenever it is rewritten. Editors replace the file rather
// than writing in place, so the parent directory is watched and events are
// filtered by name. Returns a stop function.
func Watch(envFile string, onChange func(vars map[string]string)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(envFile)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Base(envFile)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				vars, err := godotenv.Read(envFile)
				if err != nil {
					logger.Warn("config reload failed", logger.ErrorField(err))
					continue
				}
				logger.Info("config file changed", logger.String("file", envFile))
				onChange(vars)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", logger.ErrorField(err))
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

// ApplyLive applies the subset of settings that are safe to change at
// runtime. Currently only the log level; everything else needs a restart.
func ApplyLive(vars map[string]string) {
	if level, ok := vars["LOG_LEVEL"]; ok {
		logger.SetLevel(logger.LogLevel(level))
	}
}
