package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
)

// sampleLines is a small syslog: two connection messages out of order, one
// cron message and one line without a "host module: message" shape.
var sampleLines = []string{
	"Jan  1 00:00:05 host app[10]: connection from 10.0.0.2",
	"Jan  1 00:00:01 host app[11]: connection from 10.0.0.1",
	"Jan  1 00:00:09 host cron[12]: job started",
	"garbage line without separator",
}

func writeTempFile(t *testing.T, dir string, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// resetConfig clears viper and installs the defaults, as initConfig would.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)
}

// syncBuffer is a bytes.Buffer safe to read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
