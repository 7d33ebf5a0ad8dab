package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/storage"
)

const defaultLinkExpiry = 15 * time.Minute

// Upload describes an exported file in object storage.
type Upload struct {
	Key         string `json:"key"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Format      Format `json:"format"`
	Rows        int    `json:"rows"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

type Exporter struct {
	store      storage.ObjectStore
	linkExpiry time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func NewExporter(store storage.ObjectStore, linkExpiry time.Duration, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if linkExpiry <= 0 {
		linkExpiry = defaultLinkExpiry
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Exporter{
		store:      store,
		linkExpiry: linkExpiry,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString()[:8] },
	}, nil
}

// Upload encodes the table and stores it under exports/, returning a
// presigned download link.
func (e *Exporter) Upload(ctx context.Context, table *query.Table, format Format) (Upload, error) {
	encoded, err := Encode(table, format)
	if err != nil {
		return Upload{}, err
	}
	key, err := storage.BuildExportPath(e.newID(), e.now(), format.Extension())
	if err != nil {
		return Upload{}, err
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: format.ContentType()})
	if err != nil {
		return Upload{}, fmt.Errorf("upload export: %w", err)
	}
	link, err := e.store.PresignGet(ctx, key, e.linkExpiry)
	if err != nil {
		return Upload{}, fmt.Errorf("presign export: %w", err)
	}

	location := e.store.URI(key)
	e.logger.Info("result exported",
		slog.String("location", location),
		slog.String("format", string(format)),
		slog.Int("rows", encoded.Rows),
	)
	return Upload{
		Key:         key,
		Location:    location,
		URL:         link,
		Format:      format,
		Rows:        encoded.Rows,
		SizeBytes:   info.Size,
		ContentType: format.ContentType(),
	}, nil
}
