package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	dataproc "google.golang.org/api/dataproc/v1"

	"github.com/warebox/conveyor/internal/logger"
)

// DataprocClusterManager deletes the project's active Dataproc clusters once
// they have no running jobs. It is the terminal pipeline step's collaborator.
type DataprocClusterManager struct {
	svc       *dataproc.Service
	projectID string
	region    string
}

// NewDataprocClusterManager creates a cluster manager for one project/region
func NewDataprocClusterManager(svc *dataproc.Service, projectID, region string) *DataprocClusterManager {
	return &DataprocClusterManager{
		svc:       svc,
		projectID: projectID,
		region:    region,
	}
}

// ShutdownIdle implements ClusterManager
func (m *DataprocClusterManager) ShutdownIdle(ctx context.Context) error {
	clusters, err := m.svc.Projects.Regions.Clusters.List(m.projectID, m.region).
		Filter("status.state = ACTIVE").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list clusters: %w", err)
	}

	for _, cluster := range clusters.Clusters {
		active, err := m.hasActiveJobs(ctx, cluster.ClusterName)
		if err != nil {
			return err
		}
		if active {
			logger.Op.WithField("cluster", cluster.ClusterName).Debug("Cluster still running jobs, leaving it up")
			continue
		}

		logger.User.Infof("Shutting down idle cluster: %s", cluster.ClusterName)
		operation, err := m.svc.Projects.Regions.Clusters.Delete(m.projectID, m.region, cluster.ClusterName).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to delete cluster %s: %w", cluster.ClusterName, err)
		}
		if err := m.waitForOperation(ctx, operation.Name, cluster.ClusterName); err != nil {
			return err
		}
	}
	return nil
}

func (m *DataprocClusterManager) hasActiveJobs(ctx context.Context, clusterName string) (bool, error) {
	jobs, err := m.svc.Projects.Regions.Jobs.List(m.projectID, m.region).
		ClusterName(clusterName).JobStateMatcher("ACTIVE").PageSize(1).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to list jobs on cluster %s: %w", clusterName, err)
	}
	return len(jobs.Jobs) > 0, nil
}

func (m *DataprocClusterManager) waitForOperation(ctx context.Context, operationName, clusterName string) error {
	backoff := gax.Backoff{
		Initial:    5 * time.Second,
		Max:        30 * time.Second,
		Multiplier: 1.5,
	}

	for {
		operation, err := m.svc.Projects.Regions.Operations.Get(operationName).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to poll teardown of cluster %s: %w", clusterName, err)
		}
		if operation.Done {
			if operation.Error != nil {
				return fmt.Errorf("teardown of cluster %s failed: %s", clusterName, operation.Error.Message)
			}
			return nil
		}

		if err := gax.Sleep(ctx, backoff.Pause()); err != nil {
			return fmt.Errorf("cancelled while waiting for teardown of cluster %s: %w", clusterName, err)
		}
	}
}
