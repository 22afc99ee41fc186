package staticmap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
)

// Source dice de dónde salió la imagen mostrada.
type Source string

const (
	SourceLive   Source = "live"
	SourceCached Source = "cached"
	SourceBlank  Source = "blank"
)

// ImageCache guarda la última imagen buena. store.Store lo implementa.
type ImageCache interface {
	SaveImage(ctx context.Context, png []byte) error
	LastImage(ctx context.Context) ([]byte, error)
}

// Getter es lo que el Renderer necesita del Fetcher.
type Getter interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result es la imagen preparada para la vista.
type Result struct {
	Image  []byte
	Source Source
	Err    error
}

// Renderer descarga el mapa y, si falla, cae a la imagen en caché o a una imagen en blanco.
type Renderer struct {
	getter Getter
	cache  ImageCache
	key    string
	file   string
	opts   Options
	log    *slog.Logger
}

func NewRenderer(g Getter, cache ImageCache, key, file string, opts Options, log *slog.Logger) *Renderer {
	return &Renderer{getter: g, cache: cache, key: key, file: file, opts: opts, log: log.With("component", "staticmap")}
}

// Render pide la imagen para req. Nunca devuelve una imagen vacía.
func (r *Renderer) Render(ctx context.Context, req Request) Result {
	url := req.URL(r.key)
	if len(url) > MaxURLLength {
		r.log.Warn("map URL over limit", "len", len(url), "max", MaxURLLength)
	}

	img, err := r.getter.Fetch(ctx, url)
	if err == nil {
		if cerr := r.cache.SaveImage(ctx, img); cerr != nil {
			r.log.Warn("cache map image failed", "err", cerr)
		}
		r.writeFile(img)
		return Result{Image: img, Source: SourceLive}
	}

	r.log.Warn("map image download failed", "err", err)
	var te *TransportError
	if !errors.As(err, &te) {
		err = &TransportError{Err: err}
	}

	if cached, cerr := r.cache.LastImage(ctx); cerr == nil && len(cached) > 0 {
		return Result{Image: cached, Source: SourceCached, Err: err}
	}
	blank, berr := BlankPNG(r.opts.Width, r.opts.Height)
	if berr != nil {
		r.log.Error("blank image failed", "err", berr)
	}
	r.writeFile(blank)
	return Result{Image: blank, Source: SourceBlank, Err: err}
}

func (r *Renderer) writeFile(img []byte) {
	if r.file == "" || len(img) == 0 {
		return
	}
	if dir := filepath.Dir(r.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.log.Warn("create map dir failed", "err", err)
			return
		}
	}
	if err := os.WriteFile(r.file, img, 0o644); err != nil {
		r.log.Warn("write map image failed", "file", r.file, "err", err)
	}
}

// BlankPNG genera un marcador de posición gris del tamaño del mapa.
func BlankPNG(w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	fill := color.Gray{Y: 0xd0}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
