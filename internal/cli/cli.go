package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amirbrooks/tasklite/internal/config"
	"github.com/amirbrooks/tasklite/internal/logger"
	"github.com/amirbrooks/tasklite/internal/storage"
	"github.com/amirbrooks/tasklite/internal/store"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitInternal = 10
)

const version = "0.2.0"

type GlobalFlags struct {
	Home    string
	File    string
	JSON    bool
	Verbose bool
	NoColor bool
}

// usageError marks bad invocations; an empty message prints nothing.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type app struct {
	cfg    *config.Config
	gf     GlobalFlags
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func Run(args []string) int {
	return Execute(args, os.Stdout, os.Stderr)
}

// Execute runs one command against the configured state file and returns
// the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "tasklite:", err)
		return ExitInternal
	}
	a := &app{cfg: cfg, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err = root.Execute()
	_ = a.logger.Sync()
	if err == nil {
		return ExitOK
	}
	var ue *usageError
	if !errors.As(err, &ue) || ue.msg != "" {
		fmt.Fprintln(stderr, "tasklite:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue):
		return ExitUsage
	case errors.Is(err, store.ErrTaskNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrInvalidDueDate), errors.Is(err, store.ErrInvalid):
		return ExitUsage
	default:
		return ExitInternal
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "tasklite",
		Short:   "A simple local task list",
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &usageError{}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%s: %v", cmd.Name(), err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Home, "home", "", "Directory holding tasklite.json (default: $TASKLITE_HOME or ~/.tasklite)")
	pf.StringVar(&a.gf.File, "file", "", "State file path; extension picks the format (.json, .yaml, .toml, .msgpack, .db)")
	pf.BoolVar(&a.gf.JSON, "json", false, "Write JSON to stdout")
	pf.BoolVarP(&a.gf.Verbose, "verbose", "v", false, "Debug logging to stderr")
	pf.BoolVar(&a.gf.NoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.editCmd(),
		a.doneCmd(),
		a.removeCmd(),
		a.showCmd(),
		a.tagsCmd(),
		a.resetCmd(),
	)
	return root
}

// open builds the logger and loads the store. Each command calls it so
// that help and flag errors never touch the state file.
func (a *app) open() (*store.Store, error) {
	if a.gf.Home != "" {
		a.cfg.Home = a.gf.Home
	}
	if a.gf.File != "" {
		a.cfg.File = a.gf.File
	}
	if a.gf.NoColor {
		a.cfg.NoColor = true
	}
	lc := logger.Config{Level: a.cfg.Logger.Level, Encoding: a.cfg.Logger.Encoding}
	if a.gf.Verbose {
		lc.Level = "debug"
	}
	l, err := logger.NewWithWriter(lc, a.stderr)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", store.ErrInvalid, err)
	}
	a.logger = l

	path := a.cfg.DataPath()
	p, err := storage.Open(path, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening task list", zap.String("path", path))
	return store.Open(p,
		store.WithLogger(a.logger),
		store.WithStrictTagSync(a.cfg.StrictTags),
		store.WithDateFormat(a.cfg.DateFormat),
	)
}

func (a *app) addCmd() *cobra.Command {
	var (
		priority bool
		due      string
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task to the tasklist",
		Args:  minArgs(1, "tasklite add \"<name>\" [-p] [-d DD-MM-YYYY] [-t tag1,tag2]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			task, err := s.AddTask(store.AddTaskInput{
				Name:     strings.Join(args, " "),
				Priority: priority,
				DueDate:  due,
				Tags:     tags,
			})
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"task": task})
			}
			fmt.Fprintf(a.stdout, "Added task %d: %s\n", task.ID, task.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&priority, "priority", "p", false, "Mark the task as high priority")
	f.StringVarP(&due, "due-date", "d", "", "Due date in the configured format (default DD-MM-YYYY)")
	f.StringSliceVarP(&tags, "tags", "t", nil, "Tags for the task (comma-separated or repeated)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var filter store.Filter
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in the tasklist",
		Args:    noArgs("tasklite list [-p] [-d DD-MM-YYYY] [-t tag1,tag2]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			tasks, err := s.ListTasks(filter)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"tasks": tasks})
			}
			a.renderer().tasks(tasks)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&filter.PriorityOnly, "priority", "p", false, "List only high priority tasks")
	f.StringVarP(&filter.DueBefore, "due-before", "d", "", "List only tasks due on or before this date")
	f.StringSliceVarP(&filter.Tags, "tags", "t", nil, "List only tasks carrying all of these tags")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var (
		name     string
		priority bool
		due      string
		tags     []string
		done     bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit fields of a task",
		Args:  exactArgs(1, "tasklite edit <id> [--name N] [--priority=true|false] [--due-date D] [--tags a,b] [--done=true|false]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var in store.EditTaskInput
			f := cmd.Flags()
			if f.Changed("name") {
				in.Name = &name
			}
			if f.Changed("priority") {
				in.Priority = &priority
			}
			if f.Changed("due-date") {
				in.DueDate = &due
			}
			if f.Changed("tags") {
				in.Tags = append([]string{}, tags...)
			}
			if f.Changed("done") {
				in.Done = &done
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			task, err := s.EditTask(id, in)
			if err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"task": task})
			}
			fmt.Fprintf(a.stdout, "Updated task %d\n", task.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "New task name")
	f.BoolVarP(&priority, "priority", "p", false, "Set or clear high priority")
	f.StringVarP(&due, "due-date", "d", "", "New due date (empty clears it)")
	f.StringSliceVarP(&tags, "tags", "t", nil, "Replace the task's tags")
	f.BoolVar(&done, "done", false, "Set or clear completion")
	return cmd
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as done",
		Args:  exactArgs(1, "tasklite done <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			task, err := s.MarkDone(id)
			if err != nil {
				return fmt.Errorf("done: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"task": task})
			}
			fmt.Fprintf(a.stdout, "Done %d: %s\n", task.ID, task.Name)
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a task from the tasklist",
		Args:    exactArgs(1, "tasklite remove <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			task, err := s.RemoveTask(id)
			if err != nil {
				return fmt.Errorf("remove: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"task": task})
			}
			fmt.Fprintf(a.stdout, "Removed %d: %s\n", task.ID, task.Name)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  exactArgs(1, "tasklite show <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			task, err := s.GetTask(id)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"task": task})
			}
			fmt.Fprint(a.stdout, renderTaskDetail(task))
			return nil
		},
	}
}

func (a *app) tagsCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List all existing tags",
		Args:  noArgs("tasklite tags [--check]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if check {
				issues := s.CheckTagIndex()
				if a.gf.JSON {
					return a.writeJSON(map[string]any{"issues": issues})
				}
				if len(issues) == 0 {
					fmt.Fprintln(a.stdout, "Tag index is consistent.")
					return nil
				}
				for _, issue := range issues {
					fmt.Fprintln(a.stdout, issue.String())
				}
				return nil
			}
			tags := s.ListTags()
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"tags": tags})
			}
			if len(tags) == 0 {
				fmt.Fprintln(a.stdout, "No tags found. Try creating tasks with tags like `tasklite add \"task name\" -t tag1,tag2` !")
				return nil
			}
			fmt.Fprintln(a.stdout, strings.Join(tags, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Report tag index entries that disagree with the tasks")
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	var backup bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the tasklist",
		Args:  noArgs("tasklite reset [--backup]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			backupPath := ""
			if backup {
				backupPath, err = storage.Backup(a.cfg.DataPath())
				if err != nil {
					return fmt.Errorf("reset: %w", err)
				}
			}
			if err := s.ResetAll(); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			if a.gf.JSON {
				return a.writeJSON(map[string]any{"reset": true, "backup": backupPath})
			}
			if backupPath != "" {
				fmt.Fprintln(a.stdout, "Backup written to:", backupPath)
			}
			fmt.Fprintln(a.stdout, "Task list reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", false, "Copy the state file aside before resetting")
	return cmd
}

func (a *app) writeJSON(payload any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 1 {
		return 0, usageErrorf("invalid task id %q", s)
	}
	return id, nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("Usage: %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("Usage: %s", usage)
		}
		return nil
	}
}

func noArgs(usage string) cobra.PositionalArgs {
	return exactArgs(0, usage)
}
