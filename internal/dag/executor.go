package dag

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "github.com/warebox/conveyor/internal/errors"
	"github.com/warebox/conveyor/internal/logger"
	"github.com/warebox/conveyor/internal/target"
)

// ExecutorConfig contains configuration for the executor
type ExecutorConfig struct {
	// MaxParallelTasks is the maximum number of tasks to run in parallel.
	// 1 gives strictly sequential execution in topological order.
	MaxParallelTasks int
}

// DefaultExecutorConfig returns a default configuration
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxParallelTasks: 1,
	}
}

// Executor runs a graph's tasks in dependency order. A task whose declared
// outputs already exist is skipped without invoking its action; a task whose
// dependency failed is marked failed without invoking its action.
type Executor struct {
	graph   *Graph
	config  *ExecutorConfig
	cache   *target.Cache
	mutex   sync.Mutex
	cond    *sync.Cond
	results map[Identity]*TaskResult
	running int
	wg      sync.WaitGroup
}

// NewExecutor creates an executor for the given graph
func NewExecutor(graph *Graph, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if config.MaxParallelTasks < 1 {
		config.MaxParallelTasks = 1
	}

	e := &Executor{
		graph:   graph,
		config:  config,
		cache:   target.NewCache(),
		results: make(map[Identity]*TaskResult),
	}
	e.cond = sync.NewCond(&e.mutex)
	return e
}

// Execute runs the graph to completion. Cancellation is cooperative: once
// ctx is done no new task is dispatched, in-flight tasks finish or fail, and
// remaining tasks stay pending. The returned error mirrors result.Error.
func (e *Executor) Execute(ctx context.Context) (*ExecutionResult, error) {
	runID := uuid.NewString()
	startTime := time.Now()
	order := e.graph.Order()

	e.mutex.Lock()
	for _, id := range order {
		e.results[id] = &TaskResult{ID: id, Status: StatusPending}
	}
	e.mutex.Unlock()

	logger.User.Startingf("Run %s: executing %d tasks (max %d parallel)",
		runID, len(order), e.config.MaxParallelTasks)

	// Wake the scheduling loop when the context is cancelled.
	stopWatch := context.AfterFunc(ctx, func() {
		e.mutex.Lock()
		e.cond.Broadcast()
		e.mutex.Unlock()
	})
	defer stopWatch()

	e.mutex.Lock()
	for {
		if ctx.Err() != nil {
			break
		}

		progress := false
		terminal := 0

		for _, id := range order {
			result := e.results[id]
			if result.Status.Terminal() {
				terminal++
				continue
			}
			if result.Status != StatusPending {
				continue
			}

			if depID, cause, failed := e.failedDependencyLocked(id); failed {
				e.finishLocked(id, StatusFailed, perrors.NewDependencyError(string(id), string(depID), cause))
				logger.User.Errorf("Task not run: %s (dependency %s failed)", id, depID)
				terminal++
				progress = true
				continue
			}

			if !e.dependenciesTerminalLocked(id) {
				continue
			}
			if e.running >= e.config.MaxParallelTasks {
				continue
			}

			now := time.Now()
			result.Status = StatusRunning
			result.StartTime = &now
			e.running++
			e.wg.Add(1)
			go e.runTask(ctx, id)
			progress = true
		}

		if terminal == len(order) {
			break
		}
		if !progress {
			e.cond.Wait()
		}
	}
	e.mutex.Unlock()

	// Let in-flight tasks finish or fail before reporting.
	e.wg.Wait()

	result := e.buildResult(runID, startTime, ctx.Err())
	e.logSummary(result)
	return result, result.Error
}

// runTask performs the completeness check and, when needed, the action for
// one task, then records the terminal state and wakes the scheduler.
func (e *Executor) runTask(ctx context.Context, id Identity) {
	defer e.wg.Done()

	task, err := e.graph.Task(id)
	if err != nil {
		e.finish(id, StatusFailed, err)
		return
	}

	complete, err := task.Complete(ctx, e.cache)
	if err != nil {
		logger.User.Errorf("Task failed: %s - %v", id, err)
		e.finish(id, StatusFailed, err)
		return
	}
	if complete {
		logger.User.Skippedf("Task already complete: %s", id)
		e.finish(id, StatusSkipped, nil)
		return
	}

	logger.User.Infof("Starting task: %s", id)
	logger.Op.WithFields(map[string]interface{}{
		"task": string(id),
	}).Debug("Dispatching task action")

	if err := task.Run(ctx); err != nil {
		if !isPipelineError(err) {
			err = perrors.NewActionError(string(id), err)
		}
		logger.User.Errorf("Task failed: %s - %v", id, err)
		e.finish(id, StatusFailed, err)
		return
	}

	logger.User.Successf("Task completed: %s", id)
	e.finish(id, StatusSucceeded, nil)
}

func (e *Executor) finish(id Identity, status Status, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.finishLocked(id, status, err)
}

func (e *Executor) finishLocked(id Identity, status Status, err error) {
	result := e.results[id]
	now := time.Now()

	if result.Status == StatusRunning {
		e.running--
	}
	if result.StartTime == nil {
		result.StartTime = &now
	}
	result.EndTime = &now
	result.Duration = now.Sub(*result.StartTime)
	result.Status = status
	result.Error = err

	e.cond.Broadcast()
}

// failedDependencyLocked returns the first failed dependency in topological
// order, so propagation is deterministic.
func (e *Executor) failedDependencyLocked(id Identity) (Identity, error, bool) {
	deps := e.dependenciesInOrder(id)
	for _, depID := range deps {
		if result, ok := e.results[depID]; ok && result.Status == StatusFailed {
			return depID, result.Error, true
		}
	}
	return "", nil, false
}

func (e *Executor) dependenciesTerminalLocked(id Identity) bool {
	for _, depID := range e.graph.Dependencies(id) {
		result, ok := e.results[depID]
		if !ok || !result.Status.Terminal() {
			return false
		}
	}
	return true
}

// dependenciesInOrder sorts a task's dependencies by topological position
func (e *Executor) dependenciesInOrder(id Identity) []Identity {
	position := make(map[Identity]int, len(e.graph.Order()))
	for i, oid := range e.graph.Order() {
		position[oid] = i
	}

	deps := e.graph.Dependencies(id)
	for i := 1; i < len(deps); i++ {
		for j := i; j > 0 && position[deps[j]] < position[deps[j-1]]; j-- {
			deps[j], deps[j-1] = deps[j-1], deps[j]
		}
	}
	return deps
}

// buildResult constructs the final execution result
func (e *Executor) buildResult(runID string, startTime time.Time, ctxErr error) *ExecutionResult {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	result := &ExecutionResult{
		RunID:         runID,
		Results:       make(map[Identity]*TaskResult, len(e.results)),
		ExecutionTime: time.Since(startTime),
	}
	for id, taskResult := range e.results {
		copied := *taskResult
		result.Results[id] = &copied
	}

	rootResult := e.results[e.graph.Root()]
	result.Success = rootResult != nil &&
		(rootResult.Status == StatusSucceeded || rootResult.Status == StatusSkipped)
	if result.Success {
		return result
	}

	// Deepest failure first: topological order puts dependencies before
	// dependents, so the first failed task holds the original cause.
	for _, id := range e.graph.Order() {
		if taskResult := e.results[id]; taskResult.Status == StatusFailed {
			result.Error = taskResult.Error
			break
		}
	}
	if result.Error == nil {
		if ctxErr != nil {
			result.Error = ctxErr
		} else {
			result.Error = errors.New("root task did not reach a terminal state")
		}
	}

	result.FailureChain = e.failureChainLocked()
	return result
}

// failureChainLocked walks from the root through failed dependencies down to
// the first failure.
func (e *Executor) failureChainLocked() []Identity {
	rootID := e.graph.Root()
	if result, ok := e.results[rootID]; !ok || result.Status != StatusFailed {
		return nil
	}

	chain := []Identity{rootID}
	current := rootID
	for {
		next, _, failed := e.failedDependencyLocked(current)
		if !failed {
			return chain
		}
		chain = append(chain, next)
		current = next
	}
}

func (e *Executor) logSummary(result *ExecutionResult) {
	succeeded, skipped, failed := 0, 0, 0
	for _, taskResult := range result.Results {
		switch taskResult.Status {
		case StatusSucceeded:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}

	elapsed := result.ExecutionTime.Round(time.Millisecond)
	if result.Success {
		logger.User.Successf("Run %s completed: %d run, %d skipped in %v",
			result.RunID, succeeded, skipped, elapsed)
	} else {
		logger.User.Errorf("Run %s failed: %d run, %d skipped, %d failed in %v",
			result.RunID, succeeded, skipped, failed, elapsed)
	}
}

func isPipelineError(err error) bool {
	var perr *perrors.PipelineError
	return errors.As(err, &perr)
}
