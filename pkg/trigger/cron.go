package trigger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Schedule is the parsed .ipe/schedule.toml: recurring payloads the cron
// trigger replays at fixed intervals.
type Schedule struct {
	Entries []ScheduleEntry `toml:"entry"`
}

// ScheduleEntry is one recurring trigger.
type ScheduleEntry struct {
	Every string `toml:"every"` // Go duration string, e.g. "1h"
	Text  string `toml:"text"`  // payload routed verbatim
}

// LoadSchedule parses a TOML schedule file. A missing file is an empty
// schedule, not an error.
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // schedule path comes from config
	if err != nil {
		if os.IsNotExist(err) {
			return Schedule{}, nil
		}
		return Schedule{}, fmt.Errorf("read schedule %s: %w", path, err)
	}

	var s Schedule
	if err := toml.Unmarshal(data, &s); err != nil {
		return Schedule{}, fmt.Errorf("parse schedule %s: %w", path, err)
	}
	return s, nil
}

// interval parses the entry's period, with a floor to keep a malformed
// schedule from spinning.
func (e ScheduleEntry) interval() (time.Duration, error) {
	d, err := time.ParseDuration(e.Every)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", e.Every, err)
	}
	if d < time.Minute {
		d = time.Minute
	}
	return d, nil
}

// Cron watches a queue directory for dropped payload files and replays
// schedule entries on their intervals. Processed queue files are archived
// next to the queue, never deleted.
type Cron struct {
	router   Router
	queueDir string
	schedule Schedule

	// pollInterval is the fallback sweep when fsnotify is unavailable or
	// misses events (default 60s).
	pollInterval time.Duration
}

// NewCron creates a cron trigger for queueDir.
func NewCron(r Router, queueDir string, schedule Schedule) *Cron {
	return &Cron{
		router:       r,
		queueDir:     queueDir,
		schedule:     schedule,
		pollInterval: 60 * time.Second,
	}
}

// Run blocks until ctx is cancelled, draining the queue on filesystem events
// with a ticker as safety net, and firing schedule entries on their periods.
func (c *Cron) Run(ctx context.Context) error {
	if err := os.MkdirAll(c.queueDir, 0o750); err != nil {
		return fmt.Errorf("create queue dir %s: %w", c.queueDir, err)
	}

	for _, entry := range c.schedule.Entries {
		go c.runEntry(ctx, entry)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Fall back to pure polling if fsnotify fails.
		c.pollLoop(ctx)
		return nil
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(c.queueDir); err != nil {
		c.pollLoop(ctx)
		return nil
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.drainQueue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Events:
			c.drainQueue(ctx)
		case err := <-watcher.Errors:
			if err != nil {
				log.Printf("warning: queue watcher: %v", err)
			}
		case <-ticker.C:
			// Safety net sweep.
			c.drainQueue(ctx)
		}
	}
}

// pollLoop is the fallback when fsnotify is unavailable.
func (c *Cron) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.drainQueue(ctx)
		}
	}
}

// runEntry fires one schedule entry on its interval until ctx ends.
func (c *Cron) runEntry(ctx context.Context, entry ScheduleEntry) {
	d, err := entry.interval()
	if err != nil {
		log.Printf("warning: schedule entry skipped: %v", err)
		return
	}

	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.router.Route(ctx, entry.Text); err != nil {
				log.Printf("warning: scheduled route: %v", err)
			}
		}
	}
}

// drainQueue routes every regular file in the queue directory, then moves it
// to the archive. Unreadable files are archived too so they cannot wedge the
// queue.
func (c *Cron) drainQueue(ctx context.Context) {
	entries, err := os.ReadDir(c.queueDir)
	if err != nil {
		log.Printf("warning: read queue dir: %v", err)
		return
	}

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.queueDir, de.Name())

		data, err := os.ReadFile(path) //nolint:gosec // path came from ReadDir on our own queue dir
		if err == nil && len(data) > 0 {
			if _, err := c.router.Route(ctx, string(data)); err != nil {
				log.Printf("warning: route queue file %s: %v", de.Name(), err)
			}
		}
		c.archive(path, de.Name())
	}
}

// archive moves a processed queue file into <queueDir>/../queue-archive/.
func (c *Cron) archive(path, name string) {
	archiveDir := filepath.Join(filepath.Dir(c.queueDir), "queue-archive")
	if err := os.MkdirAll(archiveDir, 0o750); err != nil {
		log.Printf("warning: create archive dir: %v", err)
		return
	}
	stamped := fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)
	if err := os.Rename(path, filepath.Join(archiveDir, stamped)); err != nil {
		log.Printf("warning: archive queue file %s: %v", name, err)
	}
}
