package app

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dshills/snaketasks/internal/integration/task"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// CheckFormat reports ErrUnknownFormat unless format is one of Formats.
// An empty format means text.
func CheckFormat(format string) error {
	if format == "" || slices.Contains(Formats, format) {
		return nil
	}
	return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

// Render writes tasks to w in the given format.
func Render(w io.Writer, tasks []*task.Task, format string) error {
	if err := CheckFormat(format); err != nil {
		return err
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	switch format {
	case FormatText, "":
		return renderText(w, tasks)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}

func renderText(w io.Writer, tasks []*task.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "no tasks found")
		return err
	}

	// Rows are grouped build, test, none; the group is named on its first row.
	byGroup := task.GroupTasks(tasks)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tNAME\tCOMMAND")
	for _, group := range task.TaskGroups {
		for i, t := range byGroup[group] {
			label := ""
			if i == 0 {
				label = string(group)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", label, t.Name, t.CommandLine())
		}
	}
	return tw.Flush()
}
