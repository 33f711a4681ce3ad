package jobs

import (
	"bytes"
	"context"
	"fmt"

	storage "google.golang.org/api/storage/v1"

	"github.com/warebox/conveyor/internal/logger"
	"github.com/warebox/conveyor/internal/target"
)

// successObject is the object written under a marker prefix, matching the
// _SUCCESS convention of Hadoop job output.
const successObject = "_SUCCESS"

// GCSMarkerWriter writes completion markers as Cloud Storage objects
type GCSMarkerWriter struct {
	svc *storage.Service
}

// NewGCSMarkerWriter creates a marker writer on the given storage service
func NewGCSMarkerWriter(svc *storage.Service) *GCSMarkerWriter {
	return &GCSMarkerWriter{svc: svc}
}

// WriteMarker implements MarkerWriter
func (w *GCSMarkerWriter) WriteMarker(ctx context.Context, location string) error {
	bucket, prefix, err := target.ParseGCSURI(location)
	if err != nil {
		return err
	}

	object := &storage.Object{Name: prefix + "/" + successObject}
	_, err = w.svc.Objects.Insert(bucket, object).
		Media(bytes.NewReader(nil)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write marker %s: %w", location, err)
	}

	logger.Op.WithField("location", location).Debug("Wrote completion marker")
	return nil
}
