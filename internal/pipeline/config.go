package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "github.com/warebox/conveyor/internal/errors"
)

// defaultReduceSlotsPerMachine is the number of reduce slots each cluster
// worker contributes, used to derive job parallelism from cluster size.
const defaultReduceSlotsPerMachine = 3

// Config carries everything task construction needs. It is read once before
// the graph is built and immutable afterwards; tasks never consult ambient
// process state.
type Config struct {
	ProjectID       string `yaml:"project"`
	Region          string `yaml:"region"`
	CredentialsFile string `yaml:"credentials_file"`

	Cluster   ClusterConfig   `yaml:"cluster"`
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Run parameters, supplied by CLI flags rather than the config file
	InputBasePath  string `yaml:"-"`
	OutputBasePath string `yaml:"-"`
	TableName      string `yaml:"-"`
}

// ClusterConfig describes the cluster script jobs run on
type ClusterConfig struct {
	Name                  string `yaml:"name"`
	Size                  int    `yaml:"size"`
	ReduceSlotsPerMachine int    `yaml:"reduce_slots_per_machine"`
	ScriptsBasePath       string `yaml:"scripts_base_path"`
}

// WarehouseConfig identifies the destination dataset and its credentials
type WarehouseConfig struct {
	Project  string `yaml:"project"`
	Dataset  string `yaml:"dataset"`
	Location string `yaml:"location"`
}

// DefaultConfig returns a config with the defaults flags can override
func DefaultConfig() *Config {
	return &Config{
		Region: "us-central1",
		Cluster: ClusterConfig{
			Size:                  5,
			ReduceSlotsPerMachine: defaultReduceSlotsPerMachine,
		},
		Warehouse: WarehouseConfig{
			Location: "US",
		},
	}
}

// LoadConfigFile reads a yaml config file over the defaults
func LoadConfigFile(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.NewConfigFileError(path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, perrors.NewConfigFileError(path, err)
	}
	return config, nil
}

// Validate checks the config before any task is constructed or run
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return perrors.NewConfigError("project is required")
	}
	if c.InputBasePath == "" {
		return perrors.NewConfigError("input-base-path is required")
	}
	if c.OutputBasePath == "" {
		return perrors.NewConfigError("output-base-path is required")
	}
	if c.TableName == "" {
		return perrors.NewConfigError("table-name is required")
	}
	for _, uri := range []string{c.InputBasePath, c.OutputBasePath} {
		if !strings.HasPrefix(uri, "gs://") {
			return perrors.NewConfigError(fmt.Sprintf("path %q must be a gs:// URI", uri))
		}
	}
	if c.Cluster.Name == "" {
		return perrors.NewConfigError("cluster.name is required")
	}
	if c.Cluster.Size < 2 {
		return perrors.NewConfigError("cluster.size must be at least 2 (one master, one worker)")
	}
	if c.Cluster.ScriptsBasePath == "" {
		return perrors.NewConfigError("cluster.scripts_base_path is required")
	}
	if c.Cluster.ReduceSlotsPerMachine < 1 {
		return perrors.NewConfigError("cluster.reduce_slots_per_machine must be positive")
	}
	if c.Warehouse.Dataset == "" {
		return perrors.NewConfigError("warehouse.dataset is required")
	}
	return nil
}

// WarehouseProject returns the warehouse project, defaulting to the
// pipeline's own project
func (c *Config) WarehouseProject() string {
	if c.Warehouse.Project != "" {
		return c.Warehouse.Project
	}
	return c.ProjectID
}

// DefaultParallel is the reduce parallelism available on the cluster:
// every machine but the master contributes its reduce slots.
func (c *Config) DefaultParallel() int {
	return (c.Cluster.Size - 1) * c.Cluster.ReduceSlotsPerMachine
}

// NumberOfFiles is the number of files the transform splits its output
// into, sized to make the warehouse bulk load parallel. Owned here so every
// consumer derives it from the same place.
func (c *Config) NumberOfFiles() int {
	return 2 * c.DefaultParallel()
}

// FullPath joins a base path and a sub path
func FullPath(basePath, subPath string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(basePath, "/"), subPath)
}
