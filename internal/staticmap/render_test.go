package staticmap

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memCache struct {
	img []byte
}

func (m *memCache) SaveImage(_ context.Context, b []byte) error {
	m.img = append([]byte(nil), b...)
	return nil
}

func (m *memCache) LastImage(context.Context) ([]byte, error) {
	if m.img == nil {
		return nil, errors.New("no image")
	}
	return m.img, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "bad" {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)
	body, err := f.Fetch(context.Background(), srv.URL+"/?key=good")
	if err != nil || string(body) != "PNGDATA" {
		t.Fatalf("Fetch() = %q, %v", body, err)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/?key=bad")
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusForbidden {
		t.Fatalf("Fetch() error = %v, want TransportError 403", err)
	}

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/?key=secret")
	if !errors.As(err, &te) {
		t.Fatalf("Fetch() error = %T, want *TransportError", err)
	}
	if bytes.Contains([]byte(err.Error()), []byte("secret")) {
		t.Errorf("error leaks key: %v", err)
	}
}

type stubGetter struct {
	body []byte
	err  error
}

func (s stubGetter) Fetch(context.Context, string) ([]byte, error) { return s.body, s.err }

func TestRenderFallbacks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "map_image.png")
	cache := &memCache{}
	req := Assemble(DefaultView(), nil, nil, DefaultOptions())

	live := NewRenderer(stubGetter{body: []byte("live")}, cache, "k", file, DefaultOptions(), discardLogger())
	res := live.Render(context.Background(), req)
	if res.Source != SourceLive || string(res.Image) != "live" || res.Err != nil {
		t.Fatalf("live Render() = %+v", res)
	}
	if b, _ := os.ReadFile(file); string(b) != "live" {
		t.Errorf("map file = %q, want live", b)
	}

	failing := NewRenderer(stubGetter{err: errors.New("boom")}, cache, "k", file, DefaultOptions(), discardLogger())
	res = failing.Render(context.Background(), req)
	if res.Source != SourceCached || string(res.Image) != "live" {
		t.Errorf("cached Render() = %+v", res)
	}
	var te *TransportError
	if !errors.As(res.Err, &te) {
		t.Errorf("Err = %v, want *TransportError", res.Err)
	}

	empty := NewRenderer(stubGetter{err: errors.New("boom")}, &memCache{}, "k", file, DefaultOptions(), discardLogger())
	res = empty.Render(context.Background(), req)
	if res.Source != SourceBlank {
		t.Fatalf("blank Render() source = %s", res.Source)
	}
	img, err := png.Decode(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatalf("blank image is not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("blank size = %dx%d", b.Dx(), b.Dy())
	}
}
