package cmd

import (
	"github.com/spf13/cobra"

	"github.com/warebox/conveyor/internal/pipeline"
)

// createPipelineConfig assembles the pipeline config from the optional
// config file and the command's flags. Flags win over the file wherever
// both are set.
func createPipelineConfig(cmd *cobra.Command) (*pipeline.Config, error) {
	config := pipeline.DefaultConfig()
	if configFile != "" {
		loaded, err := pipeline.LoadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if projectID != "" {
		config.ProjectID = projectID
	}
	if regionFlag != "" {
		config.Region = regionFlag
	}
	if clusterName != "" {
		config.Cluster.Name = clusterName
	}
	if scriptsBasePath != "" {
		config.Cluster.ScriptsBasePath = scriptsBasePath
	}
	if cmd.Flags().Changed("cluster-size") {
		config.Cluster.Size = clusterSize
	}

	config.InputBasePath = inputBasePath
	config.OutputBasePath = outputBasePath
	config.TableName = tableName
	return config, nil
}
