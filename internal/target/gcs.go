package target

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"

	perrors "github.com/warebox/conveyor/internal/errors"
	"github.com/warebox/conveyor/internal/logger"
)

const gcsExistsAttempts = 3

// Retry pacing for transient storage errors. Package-level so tests can
// tighten it.
var (
	gcsBackoffInitial = 500 * time.Millisecond
	gcsBackoffMax     = 8 * time.Second
)

// GCSTarget is a marker backed by a Cloud Storage object. Hadoop-style
// outputs are directories, so a location is considered present when either
// the exact object or any object under the prefix exists.
type GCSTarget struct {
	svc    *storage.Service
	uri    string
	bucket string
	object string
}

// ParseGCSURI splits a gs://bucket/path URI into bucket and object path.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", perrors.NewConfigError(fmt.Sprintf("not a gs:// URI: %q", uri))
	}

	bucket, object, _ = strings.Cut(rest, "/")
	object = strings.TrimSuffix(object, "/")
	if bucket == "" || object == "" {
		return "", "", perrors.NewConfigError(fmt.Sprintf("gs:// URI must name a bucket and an object path: %q", uri))
	}
	return bucket, object, nil
}

// NewGCSTarget parses a gs://bucket/path URI into a target.
func NewGCSTarget(svc *storage.Service, uri string) (*GCSTarget, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	return &GCSTarget{
		svc:    svc,
		uri:    uri,
		bucket: bucket,
		object: object,
	}, nil
}

// NewGCSFactory returns a Factory producing GCS targets on the given service
func NewGCSFactory(svc *storage.Service) Factory {
	return func(location string) (Target, error) {
		return NewGCSTarget(svc, location)
	}
}

// Location returns the gs:// URI
func (t *GCSTarget) Location() string {
	return t.uri
}

// Exists checks the object, then the prefix. Transient API failures are
// retried with backoff before reporting the store unavailable.
func (t *GCSTarget) Exists(ctx context.Context) (bool, error) {
	backoff := gax.Backoff{
		Initial:    gcsBackoffInitial,
		Max:        gcsBackoffMax,
		Multiplier: 2,
	}

	var lastErr error
	for attempt := 0; attempt < gcsExistsAttempts; attempt++ {
		if attempt > 0 {
			if err := gax.Sleep(ctx, backoff.Pause()); err != nil {
				return false, perrors.NewUnavailableError(t.uri, "existence check", err)
			}
		}

		exists, err := t.lookup(ctx)
		if err == nil {
			return exists, nil
		}
		if !isTransient(err) {
			return false, perrors.NewUnavailableError(t.uri, "existence check", err)
		}

		lastErr = err
		logger.Op.WithFields(map[string]interface{}{
			"location": t.uri,
			"attempt":  attempt + 1,
		}).Debugf("Transient storage error, retrying: %v", err)
	}

	return false, perrors.NewUnavailableError(t.uri, "existence check", lastErr)
}

func (t *GCSTarget) lookup(ctx context.Context) (bool, error) {
	_, err := t.svc.Objects.Get(t.bucket, t.object).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, err
	}

	// Directory marker: any object under the prefix counts.
	list, err := t.svc.Objects.List(t.bucket).Prefix(t.object + "/").MaxResults(1).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return len(list.Items) > 0, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 404
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	// Plain transport errors (connection reset, timeout) arrive unwrapped.
	return true
}
