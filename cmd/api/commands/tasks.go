package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/taskmaster/daybook/internal/ports"
)

// NewExportCommand writes every task as a markdown document
func NewExportCommand() *cobra.Command {
	var (
		out  string
		clip bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tasks as markdown",
		Long:  "Write all tasks as a markdown document, grouped by date, to stdout, a file or the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				filename, document := a.transfer.ExportMarkdown()

				switch {
				case clip:
					if err := clipboard.WriteAll(document); err != nil {
						return fmt.Errorf("failed to copy to clipboard: %w", err)
					}
					fmt.Fprintln(cmd.ErrOrStderr(), "Copied tasks to clipboard")
				case out != "":
					if out == "." {
						out = filename
					}
					if err := os.WriteFile(out, []byte(document), 0o644); err != nil {
						return fmt.Errorf("failed to write %s: %w", out, err)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported tasks to %s\n", out)
				default:
					_, err := io.WriteString(cmd.OutOrStdout(), document)
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file ("." uses the dated default name)`)
	cmd.Flags().BoolVar(&clip, "clipboard", false, "Copy the document to the clipboard")
	return cmd
}

// NewImportCommand merges a markdown document into the task list
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a markdown document",
		Long:  `Merge tasks from a markdown document into the task list. Use "-" to read stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			return withApp(cmd.Context(), func(a *app) error {
				result, err := a.transfer.ImportMarkdown(cmd.Context(), string(data))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), importSummary(result))
				return nil
			})
		},
	}
}

// importSummary reports the tasks parsed from the document and the size of the
// collection after merging them
func importSummary(r *ports.ImportResponse) string {
	return fmt.Sprintf("Parsed %d tasks (%d total)", r.Imported, r.Total)
}

// NewTodayCommand lists today's tasks after carrying unfinished ones forward
func NewTodayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List today's tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				tasks, err := a.tasks.List(a.today)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w, a.today)
				if len(tasks) == 0 {
					fmt.Fprintln(w, "  no tasks")
				}
				for _, t := range tasks {
					box := "[ ]"
					if t.IsCompleted {
						box = "[x]"
					}
					fmt.Fprintf(w, "  %s %s (%s)\n", box, t.Content, t.Priority)
				}
				return nil
			})
		},
	}
}

// withApp runs fn against a fully loaded app and releases it afterwards
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, appLogger, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer appLogger.Close()

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	err = fn(a)
	if closeErr := a.Close(ctx); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
