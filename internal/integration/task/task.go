package task

import (
	"context"
	"strings"
)

// TaskType identifies the kind of task and the provider that owns it.
type TaskType string

const (
	// TaskTypeSnakemake is a Snakemake rule target.
	TaskTypeSnakemake TaskType = "snakemake"
)

// TaskGroup categorizes tasks for UI grouping.
type TaskGroup string

const (
	// TaskGroupBuild contains build-related tasks.
	TaskGroupBuild TaskGroup = "build"
	// TaskGroupTest contains test-related tasks.
	TaskGroupTest TaskGroup = "test"
	// TaskGroupNone contains tasks with no recognized group.
	TaskGroupNone TaskGroup = "none"
)

// TaskGroups lists the groups in display order.
var TaskGroups = []TaskGroup{TaskGroupBuild, TaskGroupTest, TaskGroupNone}

// Task is a discovered task that a host can execute. Tasks are built fresh
// on every discovery pass and are never mutated afterwards.
type Task struct {
	// ID identifies the task within its source, e.g. "snakemake:all".
	ID string `json:"id" yaml:"id"`

	// Name is the task name exactly as the tool reported it.
	Name string `json:"name" yaml:"name"`

	// Source identifies where this task was discovered from.
	Source string `json:"source" yaml:"source"`

	// SourceFile is the definition file the task belongs to.
	SourceFile string `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`

	// Type is the task type.
	Type TaskType `json:"type" yaml:"type"`

	// Group is the task classification.
	Group TaskGroup `json:"group" yaml:"group"`

	// Command is the executable a host runs for this task.
	Command string `json:"command" yaml:"command"`

	// Args are the command arguments.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Cwd is the working directory for the task.
	Cwd string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
}

// CommandLine returns the shell command line a host would run.
func (t *Task) CommandLine() string {
	if len(t.Args) == 0 {
		return t.Command
	}
	return t.Command + " " + strings.Join(t.Args, " ")
}

// TaskDefinition is the partial reference a host hands back when it wants a
// single task resolved, e.g. from a user's saved task configuration.
type TaskDefinition struct {
	Type TaskType `json:"type" yaml:"type"`
	Task string   `json:"task" yaml:"task"`
}

// Source discovers tasks for one workspace root.
type Source interface {
	// Name returns the source name (e.g., "snakemake").
	Name() string

	// Discover returns the tasks currently available under root.
	Discover(ctx context.Context, root string) ([]*Task, error)
}

// TaskProvider is the contract a host's task system consumes.
type TaskProvider interface {
	// ProvideTasks returns every task the provider can currently offer.
	ProvideTasks(ctx context.Context) ([]*Task, error)

	// ResolveTask resolves a single task from its definition, or returns
	// nil if the provider cannot resolve individual definitions.
	ResolveTask(ctx context.Context, def TaskDefinition) (*Task, error)
}

var (
	buildNames = []string{"build", "compile", "watch"}
	testNames  = []string{"test"}
)

// Classify groups a task name by case-sensitive substring. Build names are
// checked first, so "buildtest" is a build task.
func Classify(name string) TaskGroup {
	for _, pattern := range buildNames {
		if strings.Contains(name, pattern) {
			return TaskGroupBuild
		}
	}

	for _, pattern := range testNames {
		if strings.Contains(name, pattern) {
			return TaskGroupTest
		}
	}

	return TaskGroupNone
}

// GroupTasks indexes tasks by group, preserving order within each group.
func GroupTasks(tasks []*Task) map[TaskGroup][]*Task {
	byGroup := make(map[TaskGroup][]*Task)
	for _, t := range tasks {
		byGroup[t.Group] = append(byGroup[t.Group], t)
	}
	return byGroup
}
