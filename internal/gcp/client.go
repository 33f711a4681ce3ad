package gcp

import (
	"context"
	"fmt"

	bigquery "google.golang.org/api/bigquery/v2"
	dataproc "google.golang.org/api/dataproc/v1"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/warebox/conveyor/internal/logger"
)

const userAgent = "conveyor/0.1.0"

// Services bundles the Google API services the pipeline collaborators use:
// Cloud Storage for completion markers, Dataproc for script jobs and
// cluster lifecycle, BigQuery for warehouse loads.
type Services struct {
	Storage  *storage.Service
	Dataproc *dataproc.Service
	BigQuery *bigquery.Service
}

// NewServices initializes all API clients. credentialsFile may be empty, in
// which case application default credentials apply.
func NewServices(ctx context.Context, credentialsFile string) (*Services, error) {
	logger.Op.Debug("Initializing Google API clients...")

	opts := defaultClientOptions(credentialsFile)

	storageSvc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	logger.Op.Debug("Storage client initialized.")

	dataprocSvc, err := dataproc.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Dataproc client: %w", err)
	}
	logger.Op.Debug("Dataproc client initialized.")

	bigquerySvc, err := bigquery.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	logger.Op.Debug("BigQuery client initialized.")

	return &Services{
		Storage:  storageSvc,
		Dataproc: dataprocSvc,
		BigQuery: bigquerySvc,
	}, nil
}

func defaultClientOptions(credentialsFile string) []option.ClientOption {
	opts := []option.ClientOption{
		option.WithUserAgent(userAgent),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}
