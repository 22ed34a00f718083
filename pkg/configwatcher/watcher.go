package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"nsi_edu_backend/internal/config"
	"nsi_edu_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

const defaultDebounce = time.Second

// Watcher reloads the config file after it has been quiet for Debounce.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Reloader ConfigReloader
}

func New(configPath string, reloader ConfigReloader) *Watcher {
	return &Watcher{Path: configPath, Debounce: defaultDebounce, Reloader: reloader}
}

// Run blocks until ctx is cancelled or the watcher fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}

	// Editors often replace the file, so watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.Debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			w.Reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}

// ApplyLogLevel is the reloader used by the app: only the log level is hot-swappable.
func ApplyLogLevel(cfg *config.Config) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.Log.Warn("Ignoring invalid log level on reload", zap.String("level", cfg.Log.Level), zap.Error(err))
		return
	}
	logger.Log.Info("Config reloaded", zap.String("log_level", cfg.Log.Level))
}
