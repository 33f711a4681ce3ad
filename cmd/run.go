package cmd

import (
	"github.com/spf13/cobra"

	"github.com/warebox/conveyor/internal/dag"
	"github.com/warebox/conveyor/internal/gcp"
	"github.com/warebox/conveyor/internal/logger"
	"github.com/warebox/conveyor/internal/pipeline"
)

var (
	configFile      string
	projectID       string
	regionFlag      string
	inputBasePath   string
	outputBasePath  string
	tableName       string
	clusterSize     int
	clusterName     string
	scriptsBasePath string
	maxParallel     int
	dryRun          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pageview pipeline end to end",
	Long: `Builds the task graph for the pageview pipeline and executes it in
dependency order. Stages whose completion markers already exist are skipped,
so rerunning after a crash resumes at the first unfinished stage.

Example:
conveyor run --project my-gcp-project --config conveyor.yaml \
  --input-base-path gs://wiki-dumps/pagecounts \
  --output-base-path gs://wiki-output/2026-08 \
  --table-name pageviews
`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the yaml config file (optional)")
	runCmd.Flags().StringVarP(&projectID, "project", "p", "", "The Google Cloud project ID the pipeline runs in")
	runCmd.Flags().StringVar(&regionFlag, "region", "", "Region the cluster and jobs run in (default: us-central1)")
	runCmd.Flags().StringVar(&inputBasePath, "input-base-path", "", "gs:// URI of the raw pageview dumps (required)")
	runCmd.Flags().StringVar(&outputBasePath, "output-base-path", "", "gs:// URI intermediate output and markers are written under (required)")
	runCmd.Flags().StringVar(&tableName, "table-name", "", "Destination warehouse table (required)")
	runCmd.Flags().IntVar(&clusterSize, "cluster-size", 5, "Number of machines in the processing cluster")
	runCmd.Flags().StringVar(&clusterName, "cluster-name", "", "Name of the processing cluster")
	runCmd.Flags().StringVar(&scriptsBasePath, "scripts-base-path", "", "gs:// URI the pig scripts are stored under")
	runCmd.Flags().IntVar(&maxParallel, "max-parallel", 1, "Maximum number of tasks to run concurrently")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the execution plan without running anything")

	runCmd.MarkFlagRequired("input-base-path")
	runCmd.MarkFlagRequired("output-base-path")
	runCmd.MarkFlagRequired("table-name")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	config, err := createPipelineConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var services *gcp.Services
	if dryRun {
		// No API calls happen on a dry run, the clients stay unused
		services = &gcp.Services{}
	} else {
		services, err = gcp.NewServices(ctx, config.CredentialsFile)
		if err != nil {
			return err
		}
	}

	p, err := pipeline.NewFromServices(config, services)
	if err != nil {
		return err
	}
	root, err := p.Root()
	if err != nil {
		return err
	}
	graph, err := dag.Build(root)
	if err != nil {
		return err
	}
	defer graph.Close()

	if dryRun {
		logger.User.Infof("Execution plan (%d tasks):", graph.Size())
		for i, id := range graph.Order() {
			logger.User.Infof("  %d. %s", i+1, id)
		}
		return nil
	}

	executor := dag.NewExecutor(graph, &dag.ExecutorConfig{MaxParallelTasks: maxParallel})
	result, err := executor.Execute(ctx)
	if err != nil {
		if len(result.FailureChain) > 0 {
			logger.User.Error("Failure chain (root to cause):")
			for _, id := range result.FailureChain {
				logger.User.Errorf("  %s", id)
			}
		}
		return err
	}
	return nil
}
