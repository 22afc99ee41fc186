package link

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakePort devuelve un trozo por Read; "" simula un timeout de lectura.
type fakePort struct {
	chunks  []string
	written []string
	flushes int
	readErr error
	reads   int
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, io.EOF
	}
	c := f.chunks[0]
	f.chunks = f.chunks[1:]
	if c == "" {
		return 0, nil
	}
	return copy(p, c), nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.written = append(f.written, string(p))
	return len(p), nil
}

func (f *fakePort) Flush() error { f.flushes++; return nil }
func (f *fakePort) Close() error { return nil }

func newTestSession(p Port) *Session {
	return NewSession(p, 250*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		timeout     time.Duration
		wantData    string
		wantPartial bool
		wantErr     error
		wantState   SessionState
		wantReads   int
	}{
		{
			name:      "single line",
			chunks:    []string{"", "20230615120000,55.1,-3.2,120,1.2,90,2.0,8\r\n"},
			timeout:   35 * time.Second,
			wantData:  "20230615120000,55.1,-3.2,120,1.2,90,2.0,8\r\n",
			wantState: StateReplyOK,
			wantReads: 2,
		},
		{
			name:      "line split over reads",
			chunks:    []string{"ERR", "", "OR\r\n", "junk"},
			timeout:   5 * time.Second,
			wantData:  "ERROR\r\n",
			wantState: StateReplyOK,
			wantReads: 3,
		},
		{
			name:        "terminator never arrives",
			chunks:      []string{"12"},
			timeout:     time.Second,
			wantData:    "12",
			wantPartial: true,
			wantState:   StateReplyOK,
			wantReads:   4,
		},
		{
			name:      "no data",
			timeout:   time.Second,
			wantErr:   ErrTimeout,
			wantState: StateTimeout,
			wantReads: 4,
		},
		{
			name:      "timeout shorter than one read still reads once",
			timeout:   10 * time.Millisecond,
			wantErr:   ErrTimeout,
			wantState: StateTimeout,
			wantReads: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePort{chunks: tt.chunks}
			s := newTestSession(p)
			if s.State() != StateIdle {
				t.Fatalf("initial state = %v", s.State())
			}

			res, err := s.Request("2\r", tt.timeout)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Request() error = %v, want %v", err, tt.wantErr)
			}
			if res.Data != tt.wantData || res.Partial != tt.wantPartial {
				t.Errorf("Request() = %q partial=%v, want %q partial=%v", res.Data, res.Partial, tt.wantData, tt.wantPartial)
			}
			if s.State() != tt.wantState {
				t.Errorf("state = %v, want %v", s.State(), tt.wantState)
			}
			if p.reads != tt.wantReads {
				t.Errorf("reads = %d, want %d", p.reads, tt.wantReads)
			}
			if p.flushes != 1 || len(p.written) != 1 || p.written[0] != "2\r" {
				t.Errorf("flushes=%d written=%q", p.flushes, p.written)
			}
		})
	}
}

func TestRequestReadError(t *testing.T) {
	p := &fakePort{readErr: errors.New("device gone")}
	s := newTestSession(p)
	if _, err := s.Request("4\r", time.Second); err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("Request() error = %v, want I/O error", err)
	}
	if s.State() != StateReplyError {
		t.Errorf("state = %v, want reply_error", s.State())
	}
}
