// Package follow reads a growing log file line by line.
//
// It implements "tail -f" like functionality: the existing content is read
// from the start, then appended lines are delivered as they are written.
// Copy-truncate and rename based log rotation are detected.
package follow

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrRotated is returned by Run when the file is rotated away and
// FollowRotate is not set.
var ErrRotated = errors.New("file rotated")

const (
	readBufferSize  = 64 * 1024
	rotationTimeout = 10 * time.Second
	rotationPoll    = 100 * time.Millisecond
)

// Options configures the follower.
type Options struct {
	FilePath     string                               // Path to the log file
	Follow       bool                                 // Keep watching after the existing content is read
	FollowRotate bool                                 // Re-open the path after rotation
	FromEnd      bool                                 // Skip the existing content
	OnLine       func(line string, lineNum int) error // Called for each complete, non-blank line
	Logger       *slog.Logger
}

// Follower delivers the lines of one file in order.
type Follower struct {
	opts    Options
	logger  *slog.Logger
	file    *os.File
	offset  int64
	lineNum int
	partial []byte
	watcher *fsnotify.Watcher
}

// New creates a new Follower with the given options.
func New(opts Options) *Follower {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{opts: opts, logger: logger}
}

// Run reads the file and, when following, blocks until ctx is cancelled or
// an error occurs. OnLine is only ever called from the Run goroutine.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.close()

	// The watch is added before the first read so no write is missed.
	if f.opts.Follow {
		if err := f.setupWatcher(); err != nil {
			return fmt.Errorf("failed to setup watcher: %w", err)
		}
	}

	if err := f.readNewContent(); err != nil {
		return err
	}

	if !f.opts.Follow {
		return f.flush()
	}

	if err := f.watch(ctx); err != nil {
		return err
	}
	return f.flush()
}

func (f *Follower) openFile() error {
	file, err := os.Open(f.opts.FilePath)
	if err != nil {
		return err
	}
	f.file = file

	if f.opts.FromEnd {
		stat, err := file.Stat()
		if err != nil {
			return err
		}
		f.offset = stat.Size()
	}
	return nil
}

func (f *Follower) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f.watcher = watcher
	return watcher.Add(f.opts.FilePath)
}

func (f *Follower) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := f.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (f *Follower) handleEvent(ctx context.Context, event fsnotify.Event) error {
	if f.file == nil {
		return nil
	}
	switch {
	case event.Has(fsnotify.Write):
		return f.readNewContent()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return f.handleRotation(ctx)
	}
	return nil
}

// readNewContent delivers every complete line past the last offset. A
// trailing line without a newline is held until the rest of it arrives.
func (f *Follower) readNewContent() error {
	stat, err := f.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < f.offset {
		f.logger.Info("file truncated, reading from start", "path", f.opts.FilePath)
		f.offset = 0
		f.partial = nil
	}

	if _, err := f.file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReaderSize(f.file, readBufferSize)
	for {
		chunk, err := r.ReadBytes('\n')
		f.offset += int64(len(chunk))

		if errors.Is(err, io.EOF) {
			f.partial = append(f.partial, chunk...)
			return nil
		}
		if err != nil {
			return err
		}

		line := chunk
		if len(f.partial) > 0 {
			line = append(f.partial, chunk...)
			f.partial = nil
		}
		if err := f.emit(line); err != nil {
			return err
		}
	}
}

// flush delivers a held partial line once no more input is expected.
func (f *Follower) flush() error {
	if len(f.partial) == 0 {
		return nil
	}
	line := f.partial
	f.partial = nil
	return f.emit(line)
}

func (f *Follower) emit(line []byte) error {
	f.lineNum++
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	if err := f.opts.OnLine(string(line), f.lineNum); err != nil {
		return fmt.Errorf("line %d: %w", f.lineNum, err)
	}
	return nil
}

func (f *Follower) handleRotation(ctx context.Context) error {
	// Whatever was written before the rename is still readable.
	if err := f.readNewContent(); err != nil {
		return err
	}
	if err := f.flush(); err != nil {
		return err
	}

	if !f.opts.FollowRotate {
		f.logger.Warn("file rotated, stopping; use --follow-rotate to follow through rotations",
			"path", f.opts.FilePath)
		return ErrRotated
	}

	f.file.Close()
	f.file = nil
	_ = f.watcher.Remove(f.opts.FilePath)

	timeout := time.After(rotationTimeout)
	ticker := time.NewTicker(rotationPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			file, err := os.Open(f.opts.FilePath)
			if err != nil {
				continue
			}
			f.file = file
			f.offset = 0
			f.lineNum = 0

			if err := f.watcher.Add(f.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}
			f.logger.Info("file rotated, following new file", "path", f.opts.FilePath)

			// Lines written between the rotation and the new watch.
			return f.readNewContent()
		}
	}
}

func (f *Follower) close() {
	if f.file != nil {
		f.file.Close()
	}
	if f.watcher != nil {
		f.watcher.Close()
	}
}
