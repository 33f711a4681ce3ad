package pipeline

import (
	"context"
	"strconv"

	"github.com/warebox/conveyor/internal/dag"
	"github.com/warebox/conveyor/internal/jobs"
	"github.com/warebox/conveyor/internal/target"
	"github.com/warebox/conveyor/internal/warehouse"
)

const (
	extractScript   = "01-wiki-extract-data.pig"
	transformScript = "02-wiki-transform-data.pig"
)

// PageviewColumns is the schema of the hourly pageview table
var PageviewColumns = []warehouse.Column{
	{Name: "wiki_code", Type: "STRING"},
	{Name: "language", Type: "STRING"},
	{Name: "wiki_type", Type: "STRING"},
	{Name: "article", Type: "STRING"},
	{Name: "day", Type: "INTEGER"},
	{Name: "hour", Type: "INTEGER"},
	{Name: "pageviews", Type: "INTEGER"},
}

// PigScriptTask runs a pig script on the cluster and records completion as
// a success marker under the script's output prefix. Both stages of the
// wikipedia pipeline are instances of it.
type PigScriptTask struct {
	*dag.BaseTask
	runner       jobs.Runner
	script       string
	scriptParams map[string]string
	output       target.Target
	deps         []dag.Task
}

func (t *PigScriptTask) Requires() []dag.Task { return t.deps }

func (t *PigScriptTask) Outputs() []target.Target { return []target.Target{t.output} }

func (t *PigScriptTask) Complete(ctx context.Context, cache *target.Cache) (bool, error) {
	return dag.OutputsExist(ctx, t, cache)
}

func (t *PigScriptTask) Run(ctx context.Context) error {
	return t.runner.Run(ctx, jobs.ScriptJob{
		Script:         t.script,
		Parameters:     t.scriptParams,
		SuccessMarkers: []string{t.output.Location()},
	})
}

// NewExtractTask extracts raw pageview data from the input dump
func NewExtractTask(config *Config, runner jobs.Runner, targets target.Factory) (*PigScriptTask, error) {
	marker, err := targets(FullPath(config.OutputBasePath, "extract"))
	if err != nil {
		return nil, err
	}
	return &PigScriptTask{
		BaseTask: dag.NewBaseTask("extract", map[string]string{
			"input_base_path":  config.InputBasePath,
			"output_base_path": config.OutputBasePath,
			"cluster_size":     strconv.Itoa(config.Cluster.Size),
		}),
		runner: runner,
		script: extractScript,
		scriptParams: map[string]string{
			"INPUT_PATH":  config.InputBasePath,
			"OUTPUT_PATH": config.OutputBasePath,
		},
		output: marker,
	}, nil
}

// NewTransformTask aggregates extracted pageviews into load-ready files,
// split so the warehouse can ingest them in parallel
func NewTransformTask(config *Config, runner jobs.Runner, targets target.Factory, extract dag.Task) (*PigScriptTask, error) {
	marker, err := targets(FullPath(config.OutputBasePath, "transform"))
	if err != nil {
		return nil, err
	}
	return &PigScriptTask{
		BaseTask: dag.NewBaseTask("transform", map[string]string{
			"input_base_path":  config.InputBasePath,
			"output_base_path": config.OutputBasePath,
			"cluster_size":     strconv.Itoa(config.Cluster.Size),
		}),
		runner: runner,
		script: transformScript,
		scriptParams: map[string]string{
			"INPUT_PATH":               config.InputBasePath,
			"OUTPUT_PATH":              config.OutputBasePath,
			"REDSHIFT_PARALLELIZATION": strconv.Itoa(config.NumberOfFiles()),
		},
		output: marker,
		deps:   []dag.Task{extract},
	}, nil
}

// CopyToWarehouseTask bulk loads the transformed files into the warehouse
// table. Completion is the table existing, not a filesystem marker, so the
// load reruns if the table is dropped.
type CopyToWarehouseTask struct {
	*dag.BaseTask
	loader    warehouse.Loader
	table     string
	sourceURI string
	deps      []dag.Task
}

func NewCopyToWarehouseTask(config *Config, loader warehouse.Loader, transform dag.Task) *CopyToWarehouseTask {
	return &CopyToWarehouseTask{
		BaseTask: dag.NewBaseTask("copy_to_warehouse", map[string]string{
			"input_base_path":  config.InputBasePath,
			"output_base_path": config.OutputBasePath,
			"table_name":       config.TableName,
		}),
		loader:    loader,
		table:     config.TableName,
		sourceURI: FullPath(FullPath(config.OutputBasePath, "transform"), "part"),
		deps:      []dag.Task{transform},
	}
}

func (t *CopyToWarehouseTask) Requires() []dag.Task { return t.deps }

func (t *CopyToWarehouseTask) Complete(ctx context.Context, cache *target.Cache) (bool, error) {
	return t.loader.TableExists(ctx, t.table)
}

func (t *CopyToWarehouseTask) Run(ctx context.Context) error {
	return t.loader.CopyFrom(ctx, t.sourceURI, t.table, PageviewColumns)
}

// ShutdownClustersTask tears down idle clusters once the data is loaded and
// writes its own marker so a rerun of a finished pipeline touches nothing
type ShutdownClustersTask struct {
	*dag.BaseTask
	clusters jobs.ClusterManager
	markers  jobs.MarkerWriter
	output   target.Target
	deps     []dag.Task
}

func NewShutdownClustersTask(config *Config, clusters jobs.ClusterManager, markers jobs.MarkerWriter, targets target.Factory, copy dag.Task) (*ShutdownClustersTask, error) {
	marker, err := targets(FullPath(config.OutputBasePath, "ShutdownClusters"))
	if err != nil {
		return nil, err
	}
	return &ShutdownClustersTask{
		BaseTask: dag.NewBaseTask("shutdown_clusters", map[string]string{
			"input_base_path":  config.InputBasePath,
			"output_base_path": config.OutputBasePath,
			"table_name":       config.TableName,
		}),
		clusters: clusters,
		markers:  markers,
		output:   marker,
		deps:     []dag.Task{copy},
	}, nil
}

func (t *ShutdownClustersTask) Requires() []dag.Task { return t.deps }

func (t *ShutdownClustersTask) Outputs() []target.Target { return []target.Target{t.output} }

func (t *ShutdownClustersTask) Complete(ctx context.Context, cache *target.Cache) (bool, error) {
	return dag.OutputsExist(ctx, t, cache)
}

func (t *ShutdownClustersTask) Run(ctx context.Context) error {
	if err := t.clusters.ShutdownIdle(ctx); err != nil {
		return err
	}
	return t.markers.WriteMarker(ctx, t.output.Location())
}
