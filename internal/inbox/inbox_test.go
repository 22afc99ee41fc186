package inbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	plainLine = "20170729144631,55.866573,-2.428458,103,0.1,0,1.3,9,99272,25.3,5.26,11\r\n"
	relayLine = "RB0001234,20170729150000,55.9,-2.4,103,0.1,0,1.3,9,99272,25.3,5.26,12\r\n"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanOrdersByMOMSN(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "300234010753370-12.bin", relayLine)
	write(t, dir, "300234010753370-9.bin", plainLine)
	write(t, dir, "readme.txt", "not a message")
	write(t, dir, "12345-1.bin", plainLine) // imei corto

	s, err := NewScanner(dir, false, discard())
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Scan() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].MOMSN != 9 || msgs[1].MOMSN != 12 {
		t.Errorf("order = %d,%d, want 9,12", msgs[0].MOMSN, msgs[1].MOMSN)
	}
	if msgs[0].IMEI != "300234010753370" {
		t.Errorf("IMEI = %q", msgs[0].IMEI)
	}
	if msgs[1].Fix.Relay != "RB0001234" || msgs[1].Fix.Sequence != 12 {
		t.Errorf("relay fix = %+v", msgs[1].Fix)
	}

	again, _ := s.Scan()
	if len(again) != 0 {
		t.Errorf("second Scan() returned %d messages, want 0", len(again))
	}
}

func TestScanSkipsInvalidOnce(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "300234010753370-1.bin", "garbage")
	s, _ := NewScanner(dir, false, discard())

	// dos intentos con el mismo tamaño: se da por inválido
	for i := 0; i < 2; i++ {
		msgs, err := s.Scan()
		if err != nil || len(msgs) != 0 {
			t.Fatalf("Scan() #%d = %v, %v", i, msgs, err)
		}
	}
	write(t, dir, "300234010753370-1.bin", plainLine)
	if msgs, _ := s.Scan(); len(msgs) != 0 {
		t.Errorf("invalid file reprocessed")
	}
}

func TestScanWaitsForContent(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "300434063000000-12.bin", "")
	s, _ := NewScanner(dir, false, discard())

	if msgs, _ := s.Scan(); len(msgs) != 0 {
		t.Fatalf("empty file delivered: %+v", msgs)
	}
	write(t, dir, "300434063000000-12.bin", plainLine)
	msgs, err := s.Scan()
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Scan() after write = %v, %v, want 1 message", msgs, err)
	}
	if msgs[0].Raw != strings.TrimSpace(plainLine) {
		t.Errorf("Raw = %q", msgs[0].Raw)
	}
}

func TestScanRetriesGrowingFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "300434063000000-13.bin", plainLine[:20])
	s, _ := NewScanner(dir, false, discard())

	if msgs, _ := s.Scan(); len(msgs) != 0 {
		t.Fatalf("partial file delivered: %+v", msgs)
	}
	write(t, dir, "300434063000000-13.bin", plainLine)
	if msgs, _ := s.Scan(); len(msgs) != 1 {
		t.Errorf("Scan() after completing the file = %d messages, want 1", len(msgs))
	}
}

func TestIgnoreExisting(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "300234010753370-1.bin", plainLine)
	s, err := NewScanner(dir, true, discard())
	if err != nil {
		t.Fatal(err)
	}
	write(t, dir, "300234010753370-2.bin", plainLine)

	msgs, _ := s.Scan()
	if len(msgs) != 1 || msgs[0].MOMSN != 2 {
		t.Errorf("Scan() = %+v, want only MOMSN 2", msgs)
	}
}

func TestScanSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "2017-07")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	write(t, sub, "300234010753370-3.bin", plainLine)
	s, _ := NewScanner(dir, false, discard())
	msgs, _ := s.Scan()
	if len(msgs) != 1 {
		t.Errorf("Scan() found %d messages in subdirectory, want 1", len(msgs))
	}
}

func TestWatchNotifiesOnBin(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notify, err := Watch(ctx, dir, discard())
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	write(t, dir, "notes.txt", "ignored")
	write(t, dir, "300234010753370-4.bin", plainLine)

	select {
	case <-notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification for new .bin file")
	}

	cancel()
	for range notify {
	}
}
