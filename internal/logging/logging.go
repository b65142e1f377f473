// Package logging points the standard logger at stdout plus a daily file
// named app-YYYY-MM-DD.log, and prunes files older than the retention window.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

type Rotator struct {
	Dir           string
	RetentionDays int
	Now           func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// Setup installs a Rotator as the log output and checks for a new day every
// minute. The returned func stops the check and closes the current file.
func Setup(dir string, retentionDays int) (func(), error) {
	rot := &Rotator{Dir: dir, RetentionDays: retentionDays, Now: time.Now}
	if err := rot.Rotate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rot.Rotate(); err != nil {
					log.Printf("log rotation: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		cancel()
		rot.Close()
	}, nil
}

// Rotate opens the file for the current day if it is not open yet.
func (r *Rotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := r.Now().Format(dayLayout)
	if day == r.day && r.file != nil {
		return nil
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(filepath.Join(r.Dir, fmt.Sprintf("app-%s.log", day)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	if r.file != nil {
		_ = r.file.Close()
	}
	r.file = file
	r.day = day
	r.prune()
	return nil
}

func (r *Rotator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		log.SetOutput(os.Stdout)
		_ = r.file.Close()
		r.file = nil
	}
}

// prune keeps today's file and the RetentionDays-1 days before it.
func (r *Rotator) prune() {
	retention := r.RetentionDays
	if retention < 1 {
		retention = 1
	}
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return
	}
	today, _ := time.Parse(dayLayout, r.day)
	cutoff := today.AddDate(0, 0, -(retention - 1))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		logDate, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log"))
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(r.Dir, name))
		}
	}
}
