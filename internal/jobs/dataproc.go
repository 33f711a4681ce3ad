package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	dataproc "google.golang.org/api/dataproc/v1"

	"github.com/warebox/conveyor/internal/logger"
)

const defaultPollInterval = 10 * time.Second

// RunnerConfig locates the cluster and scripts a DataprocRunner submits to
type RunnerConfig struct {
	ProjectID       string
	Region          string
	ClusterName     string
	ScriptsBasePath string
	PollInterval    time.Duration
}

// DataprocRunner runs Pig scripts as Dataproc jobs. It submits the job,
// polls until a terminal state, and writes the task's success markers.
type DataprocRunner struct {
	svc     *dataproc.Service
	markers MarkerWriter
	config  RunnerConfig
}

// NewDataprocRunner creates a runner for the configured cluster
func NewDataprocRunner(svc *dataproc.Service, markers MarkerWriter, config RunnerConfig) *DataprocRunner {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	return &DataprocRunner{
		svc:     svc,
		markers: markers,
		config:  config,
	}
}

// Run implements Runner
func (r *DataprocRunner) Run(ctx context.Context, job ScriptJob) error {
	scriptURI := fmt.Sprintf("%s/%s", r.config.ScriptsBasePath, job.Script)

	request := &dataproc.SubmitJobRequest{
		Job: &dataproc.Job{
			Placement: &dataproc.JobPlacement{
				ClusterName: r.config.ClusterName,
			},
			PigJob: &dataproc.PigJob{
				QueryFileUri:    scriptURI,
				ScriptVariables: job.Parameters,
			},
		},
	}

	submitted, err := r.svc.Projects.Regions.Jobs.Submit(r.config.ProjectID, r.config.Region, request).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to submit job for script %s: %w", job.Script, err)
	}

	jobID := submitted.Reference.JobId
	logger.Op.WithFields(map[string]interface{}{
		"script":  job.Script,
		"job_id":  jobID,
		"cluster": r.config.ClusterName,
	}).Debug("Submitted Dataproc job")

	if err := r.waitForJob(ctx, jobID, job.Script); err != nil {
		return err
	}

	for _, location := range job.SuccessMarkers {
		if err := r.markers.WriteMarker(ctx, location); err != nil {
			return fmt.Errorf("job %s succeeded but marker write failed: %w", jobID, err)
		}
	}
	return nil
}

// waitForJob polls the job until DONE, ERROR or CANCELLED
func (r *DataprocRunner) waitForJob(ctx context.Context, jobID, script string) error {
	backoff := gax.Backoff{
		Initial:    r.config.PollInterval,
		Max:        r.config.PollInterval * 6,
		Multiplier: 1.5,
	}

	for {
		job, err := r.svc.Projects.Regions.Jobs.Get(r.config.ProjectID, r.config.Region, jobID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to poll job %s: %w", jobID, err)
		}

		state := job.Status.State
		switch state {
		case "DONE":
			return nil
		case "ERROR", "CANCELLED":
			return fmt.Errorf("job %s for script %s ended %s: %s", jobID, script, state, job.Status.Details)
		}

		logger.Op.WithFields(map[string]interface{}{
			"job_id": jobID,
			"state":  state,
		}).Debug("Waiting for Dataproc job")

		if err := gax.Sleep(ctx, backoff.Pause()); err != nil {
			return fmt.Errorf("cancelled while waiting for job %s: %w", jobID, err)
		}
	}
}
