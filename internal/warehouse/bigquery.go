package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"

	perrors "github.com/warebox/conveyor/internal/errors"
	"github.com/warebox/conveyor/internal/logger"
)

// BigQueryConfig identifies the destination dataset
type BigQueryConfig struct {
	ProjectID string
	Dataset   string
	Location  string
}

// BigQueryLoader loads gzip-compressed, tab-separated transform output from
// Cloud Storage into a BigQuery table via a load job.
type BigQueryLoader struct {
	svc    *bigquery.Service
	config BigQueryConfig
}

// NewBigQueryLoader creates a loader for the configured dataset
func NewBigQueryLoader(svc *bigquery.Service, config BigQueryConfig) *BigQueryLoader {
	return &BigQueryLoader{
		svc:    svc,
		config: config,
	}
}

// TableExists implements Loader
func (l *BigQueryLoader) TableExists(ctx context.Context, table string) (bool, error) {
	_, err := l.svc.Tables.Get(l.config.ProjectID, l.config.Dataset, table).Context(ctx).Do()
	if err == nil {
		return true, nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 404 {
		return false, nil
	}
	return false, perrors.NewUnavailableError(
		fmt.Sprintf("%s.%s", l.config.Dataset, table), "table existence check", err)
}

// CopyFrom implements Loader
func (l *BigQueryLoader) CopyFrom(ctx context.Context, sourceURI, table string, columns []Column) error {
	fields := make([]*bigquery.TableFieldSchema, 0, len(columns))
	for _, column := range columns {
		fields = append(fields, &bigquery.TableFieldSchema{
			Name: column.Name,
			Type: column.Type,
		})
	}

	job := &bigquery.Job{
		Configuration: &bigquery.JobConfiguration{
			Load: &bigquery.JobConfigurationLoad{
				SourceUris: []string{sourceURI + "*"},
				DestinationTable: &bigquery.TableReference{
					ProjectId: l.config.ProjectID,
					DatasetId: l.config.Dataset,
					TableId:   table,
				},
				Schema:            &bigquery.TableSchema{Fields: fields},
				SourceFormat:      "CSV",
				FieldDelimiter:    "\t",
				CreateDisposition: "CREATE_IF_NEEDED",
				WriteDisposition:  "WRITE_TRUNCATE",
			},
		},
		JobReference: &bigquery.JobReference{
			ProjectId: l.config.ProjectID,
			Location:  l.config.Location,
		},
	}

	inserted, err := l.svc.Jobs.Insert(l.config.ProjectID, job).Context(ctx).Do()
	if err != nil {
		return perrors.NewLoadError(table, err)
	}

	jobID := inserted.JobReference.JobId
	logger.Op.WithFields(map[string]interface{}{
		"job_id": jobID,
		"table":  table,
		"source": sourceURI,
	}).Debug("Submitted load job")

	if err := l.waitForJob(ctx, jobID, table); err != nil {
		return perrors.NewLoadError(table, err)
	}
	return nil
}

func (l *BigQueryLoader) waitForJob(ctx context.Context, jobID, table string) error {
	backoff := gax.Backoff{
		Initial:    2 * time.Second,
		Max:        30 * time.Second,
		Multiplier: 1.5,
	}

	for {
		job, err := l.svc.Jobs.Get(l.config.ProjectID, jobID).Location(l.config.Location).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to poll load job %s: %w", jobID, err)
		}

		if job.Status.State == "DONE" {
			if job.Status.ErrorResult != nil {
				return fmt.Errorf("load job %s into %s failed: %s", jobID, table, job.Status.ErrorResult.Message)
			}
			return nil
		}

		if err := gax.Sleep(ctx, backoff.Pause()); err != nil {
			return fmt.Errorf("cancelled while waiting for load job %s: %w", jobID, err)
		}
	}
}
