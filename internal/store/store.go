package store

import (
	"context"
	"errors"

	"beacon-base/internal/codec"
)

// ErrNotFound: no hay valor guardado para la clave pedida.
var ErrNotFound = errors.New("store: not found")

// Store guarda el último fix de cada track y la última imagen buena del mapa.
type Store interface {
	SaveFix(ctx context.Context, id string, fix codec.Fix) error
	LatestFix(ctx context.Context, id string) (codec.Fix, error)
	SaveImage(ctx context.Context, png []byte) error
	LastImage(ctx context.Context) ([]byte, error)
	Close() error
}

func fixKey(id string) string { return "beacon:" + id + ":latest" }

const imageKey = "map:last_image"
