package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bimmerbailey/herring/internal/config"
)

func TestParser_ParseLine(t *testing.T) {
	p := New(nil, WithYear(2026))

	tests := []struct {
		name        string
		input       string
		wantOK      bool
		wantTime    time.Time
		wantModule  string
		wantMessage string
	}{
		{
			name:        "syslog with PID",
			input:       "Jan 1 00:00:01 host app[1]: connection from 10.0.0.1",
			wantOK:      true,
			wantTime:    time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
			wantModule:  "app",
			wantMessage: "connection from 10.0.0.1",
		},
		{
			name:        "space padded day",
			input:       "Jan  5 10:00:01 web-01 kernel: Out of memory",
			wantOK:      true,
			wantTime:    time.Date(2026, 1, 5, 10, 0, 1, 0, time.UTC),
			wantModule:  "kernel",
			wantMessage: "Out of memory",
		},
		{
			name:        "separator inside message",
			input:       "Feb 12 08:30:00 host sshd[22]: error: maximum authentication attempts exceeded",
			wantOK:      true,
			wantTime:    time.Date(2026, 2, 12, 8, 30, 0, 0, time.UTC),
			wantModule:  "sshd",
			wantMessage: "error: maximum authentication attempts exceeded",
		},
		{
			name:        "surrounding whitespace",
			input:       "  Mar 3 01:02:03 host cron[7]: job started  ",
			wantOK:      true,
			wantTime:    time.Date(2026, 3, 3, 1, 2, 3, 0, time.UTC),
			wantModule:  "cron",
			wantMessage: "job started",
		},
		{
			name:        "RFC3339 stamp",
			input:       "2025-11-02T03:04:05Z host app[9]: ready",
			wantOK:      true,
			wantTime:    time.Date(2025, 11, 2, 3, 4, 5, 0, time.UTC),
			wantModule:  "app",
			wantMessage: "ready",
		},
		{
			name:   "no separator",
			input:  "Jan 1 00:00:01 host app[1] connection from 10.0.0.1",
			wantOK: false,
		},
		{
			name:   "unparseable date",
			input:  "Foo 1 00:00:01 host app[1]: connection",
			wantOK: false,
		},
		{
			name:   "empty stamp",
			input:  ": message without stamp",
			wantOK: false,
		},
		{
			name:   "blank",
			input:  "   ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ParseLine(tt.input, 7)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !got.Timestamp.Equal(tt.wantTime) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.wantTime)
			}
			if got.Module != tt.wantModule {
				t.Errorf("Module = %q, want %q", got.Module, tt.wantModule)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
			if got.Line != 7 {
				t.Errorf("Line = %d, want 7", got.Line)
			}
		})
	}
}

func TestParser_CustomFormats(t *testing.T) {
	p := New([]string{"02/01/2006 15:04:05"})

	rec, ok := p.ParseLine("25/12/2025 18:00:00 box svc: merry", 1)
	if !ok {
		t.Fatal("ParseLine() should accept the custom layout")
	}
	if want := time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC); !rec.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
	}

	if _, ok := p.ParseLine("Jan 1 00:00:01 host app: x", 2); ok {
		t.Error("syslog stamp should be rejected when not configured")
	}
}

const sampleLog = `Jan 1 00:00:01 host app[1]: connection from 10.0.0.1

garbage line without separator
Jan 1 00:00:05 host app[1]: connection from 10.0.0.2
Bad 1 00:00:05 host app[1]: bad date
Jan 1 00:00:09 host cron[2]: job started
`

func TestParser_ParseStream(t *testing.T) {
	p := New(nil, WithYear(2026))

	var recs []config.Record
	stats, err := p.ParseStream(strings.NewReader(sampleLog), func(r config.Record) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseStream() error = %v", err)
	}

	want := Stats{Lines: 5, Records: 3, Skipped: 2}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	wantLines := []int{1, 4, 6}
	for i, r := range recs {
		if r.Line != wantLines[i] {
			t.Errorf("record %d Line = %d, want %d", i, r.Line, wantLines[i])
		}
	}
	if recs[2].Module != "cron" {
		t.Errorf("Module = %q, want cron", recs[2].Module)
	}
}

func TestParser_ParseStreamCallbackError(t *testing.T) {
	p := New(nil)
	stop := errors.New("stop")

	calls := 0
	_, err := p.ParseStream(strings.NewReader(sampleLog), func(config.Record) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("ParseStream() error = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syslog")
	if err := os.WriteFile(path, []byte(sampleLog), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := New(nil)
	n := 0
	stats, err := p.ParseFile(path, func(config.Record) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if n != 3 || stats.Records != 3 {
		t.Errorf("got %d records (stats %d), want 3", n, stats.Records)
	}
}

func TestParser_ParseFileMissing(t *testing.T) {
	p := New(nil)
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "nope"), func(config.Record) error { return nil })
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ParseFile() error = %v, want os.ErrNotExist", err)
	}
}

func TestStats_Add(t *testing.T) {
	s := Stats{Lines: 1, Records: 1}
	s.Add(Stats{Lines: 3, Records: 2, Skipped: 1})
	if want := (Stats{Lines: 4, Records: 3, Skipped: 1}); s != want {
		t.Errorf("Add() = %+v, want %+v", s, want)
	}
}

func BenchmarkParser_ParseLine(b *testing.B) {
	p := New(nil)
	line := "Jan 26 10:00:01 web-01 sshd[1234]: Accepted publickey for deploy from 10.1.2.3 port 51234 ssh2"
	for i := 0; i < b.N; i++ {
		p.ParseLine(line, i)
	}
}
