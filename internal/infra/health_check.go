package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const checkExecInterval = 5 * time.Second

// MonitorExecutable signals once when the running binary is replaced on disk.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	return monitorFile(ctx, "", checkExecInterval)
}

// monitorFile takes the baseline before returning, so a change made right after
// the call is always seen. The channel never fires when path cannot be read.
func monitorFile(ctx context.Context, path string, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			log.WithField("error", err.Error()).Warn("cant resolve executable path for monitor")
			return ch
		}
		path = exe
	}
	stat, err := os.Stat(path)
	if err != nil {
		log.WithField("error", err.Error()).Warn("cant stat file for monitor")
		return ch
	}
	originalTime := stat.ModTime()

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(path)
				if err != nil {
					log.WithField("error", err.Error()).Debug("cant stat file for monitor tick")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}
