package pipeline

import (
	"github.com/warebox/conveyor/internal/dag"
	"github.com/warebox/conveyor/internal/gcp"
	"github.com/warebox/conveyor/internal/jobs"
	"github.com/warebox/conveyor/internal/target"
	"github.com/warebox/conveyor/internal/warehouse"
)

// Pipeline holds the collaborators the wikipedia pageview tasks run
// against. Construction validates the config; building the graph from
// Root never fails after that except on malformed target locations.
type Pipeline struct {
	config   *Config
	runner   jobs.Runner
	clusters jobs.ClusterManager
	markers  jobs.MarkerWriter
	loader   warehouse.Loader
	targets  target.Factory
}

// New creates a pipeline from explicit collaborators
func New(config *Config, runner jobs.Runner, clusters jobs.ClusterManager, markers jobs.MarkerWriter, loader warehouse.Loader, targets target.Factory) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		config:   config,
		runner:   runner,
		clusters: clusters,
		markers:  markers,
		loader:   loader,
		targets:  targets,
	}, nil
}

// NewFromServices wires the pipeline against live backend services
func NewFromServices(config *Config, services *gcp.Services) (*Pipeline, error) {
	markers := jobs.NewGCSMarkerWriter(services.Storage)
	runner := jobs.NewDataprocRunner(services.Dataproc, markers, jobs.RunnerConfig{
		ProjectID:       config.ProjectID,
		Region:          config.Region,
		ClusterName:     config.Cluster.Name,
		ScriptsBasePath: config.Cluster.ScriptsBasePath,
	})
	clusters := jobs.NewDataprocClusterManager(services.Dataproc, config.ProjectID, config.Region)
	loader := warehouse.NewBigQueryLoader(services.BigQuery, warehouse.BigQueryConfig{
		ProjectID: config.WarehouseProject(),
		Dataset:   config.Warehouse.Dataset,
		Location:  config.Warehouse.Location,
	})
	return New(config, runner, clusters, markers, loader, target.NewGCSFactory(services.Storage))
}

// Root constructs the task chain and returns its final task. Building the
// graph from it reaches every stage of the pipeline.
func (p *Pipeline) Root() (dag.Task, error) {
	extract, err := NewExtractTask(p.config, p.runner, p.targets)
	if err != nil {
		return nil, err
	}
	transform, err := NewTransformTask(p.config, p.runner, p.targets, extract)
	if err != nil {
		return nil, err
	}
	copyTask := NewCopyToWarehouseTask(p.config, p.loader, transform)
	return NewShutdownClustersTask(p.config, p.clusters, p.markers, p.targets, copyTask)
}
