package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often the file is checked when no fsnotify
// event arrives.
const DefaultPollInterval = time.Second

// ErrFileGone is returned when the followed file is removed or renamed.
var ErrFileGone = errors.New("tail: followed file removed or renamed")

// Follower reads lines appended to one file.
type Follower struct {
	path string
	poll time.Duration
}

// New returns a Follower for path. A non-positive poll uses DefaultPollInterval.
func New(path string, poll time.Duration) *Follower {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Follower{path: path, poll: poll}
}

// Run calls emit for every complete line appended after Run starts. The line
// is passed without its terminator; invalid UTF-8 is replaced and blank lines
// are not emitted. Run blocks until ctx is cancelled (returning nil) or the
// file can no longer be followed.
func (f *Follower) Run(ctx context.Context, emit func(string)) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("tail: open: %w", err)
	}
	defer file.Close()

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("tail: seek to end: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tail: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.path); err != nil {
		return fmt.Errorf("tail: watch: %w", err)
	}

	slog.Info("tail: following", "path", f.path, "offset", offset)

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	reader := bufio.NewReader(file)
	var partial strings.Builder

	for {
		// Read everything currently available.
		for {
			chunk, err := reader.ReadString('\n')
			offset += int64(len(chunk))
			if err == nil {
				partial.WriteString(chunk)
				emitLine(partial.String(), emit)
				partial.Reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				partial.WriteString(chunk)
				break
			}
			return fmt.Errorf("tail: read: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("tail: watcher closed")
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return fmt.Errorf("%w: %s", ErrFileGone, f.path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("tail: watcher closed")
			}
			slog.Warn("tail: watcher error", "path", f.path, "err", err)

		case <-ticker.C:
			if _, err := os.Stat(f.path); err != nil {
				return fmt.Errorf("%w: %v", ErrFileGone, err)
			}
		}

		truncated, err := f.truncated(file, offset)
		if err != nil {
			return err
		}
		if truncated {
			slog.Warn("tail: file truncated, reading from start", "path", f.path, "offset", offset)
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("tail: seek to start: %w", err)
			}
			offset = 0
			partial.Reset()
			reader.Reset(file)
		}
	}
}

// truncated reports whether the file shrank below the read offset.
func (f *Follower) truncated(file *os.File, offset int64) (bool, error) {
	fi, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("tail: stat: %w", err)
	}
	return fi.Size() < offset, nil
}

// emitLine strips the line terminator and forwards non-blank lines.
func emitLine(raw string, emit func(string)) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	emit(strings.ToValidUTF8(line, "\uFFFD"))
}
