package staticmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TransportError envuelve cualquier fallo al descargar la imagen.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch map: status %d", e.Status)
	}
	return fmt.Sprintf("fetch map: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// maxImageBytes: una imagen 640x480 png ronda los 500 KB.
const maxImageBytes = 8 << 20

// Fetcher descarga la imagen. La URL lleva la clave: no se incluye en los errores.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch hace GET de rawURL y devuelve el cuerpo; no-2xx o error de red → *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Err: stripURL(err)}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: stripURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return body, nil
}

func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
