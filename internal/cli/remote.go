package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/okian/recap/internal/adapters/http/api"
	"github.com/okian/recap/internal/adapters/snapshot"
	"github.com/okian/recap/internal/client"
	"github.com/okian/recap/internal/domain/model"
)

// Output formats for show.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// ErrInvalidTarget is returned for an empty or non-positive target argument.
var ErrInvalidTarget = errors.New("invalid target")

func newClient(cmd *cobra.Command) *client.Client {
	cfg := GetConfig(cmd.Context())
	return client.New(cfg.ServerURL, client.WithTimeout(cfg.RequestTimeout()))
}

// parseTarget reads a rank as shown by "show" (1-based) or an entry ID.
func parseTarget(arg string) (model.Target, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return model.Target{}, ErrInvalidTarget
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 {
			return model.Target{}, fmt.Errorf("%w: rank %d", ErrInvalidTarget, n)
		}
		return model.AtIndex(n - 1), nil
	}
	return model.ByID(arg), nil
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the ranked board of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newClient(cmd).Leaderboard(cmd.Context())
			if err != nil {
				return err
			}
			switch output {
			case OutputJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			case OutputTable:
				renderBoard(cmd.OutOrStdout(), &v)
				return nil
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format (table|json)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputTable, OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderBoard(w io.Writer, v *api.ViewResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Weekly Recap %s - %s", v.StartDate, v.EndDate)
	t.AppendHeader(table.Row{"Rank", "Name", "Role", "Units", "ID"})
	for _, r := range v.Rows {
		name := r.Name
		if r.PendingRemoval {
			name += " (leaving)"
		}
		t.AppendRow(table.Row{r.Rank, name, r.Role, r.UnitsDisplay, r.ID})
	}
	t.AppendFooter(table.Row{"", "", "Total", v.TotalDisplay, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Units", Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
	if len(v.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "No cappers added yet.")
	}
}

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a capper with default fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient(cmd).Add(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printMutation(cmd.OutOrStdout(), "added", &res)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key for the request")
	return cmd
}

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "edit <rank|id> <name|role|units> <value>",
		Short: "Commit a new value for one field of a capper",
		Example: `  # Rename the capper ranked first
  recap edit 1 name @Sharp

  # Set units by ID
  recap edit 4f1c... units -2.5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			res, err := newClient(cmd).Commit(cmd.Context(), key, target, args[1], args[2])
			if err != nil {
				return err
			}
			return printMutation(cmd.OutOrStdout(), "updated", &res)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key for the request")
	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:     "rm <rank|id>",
		Aliases: []string{"delete"},
		Short:   "Remove a capper after its exit delay",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			res, err := newClient(cmd).Delete(cmd.Context(), key, target)
			if err != nil {
				return err
			}
			return printMutation(cmd.OutOrStdout(), "removing", &res)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key for the request")
	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the board as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := newClient(cmd).Export(cmd.Context())
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(outFile, body, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the document to this file instead of stdout")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with a JSON document",
		Long: `Replace the board with a JSON document.

The file is checked locally first; the server ignores documents it cannot
read, so a local failure is the only error reported for bad input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			doc, err := snapshot.Decode(body)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			dup, err := newClient(cmd).Import(cmd.Context(), key, body)
			if err != nil {
				return err
			}
			if dup {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "already imported")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d cappers\n", len(doc.Cappers))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key for the request")
	return cmd
}

func printMutation(w io.Writer, verb string, res *api.MutationResponse) error {
	if res.Duplicate {
		_, err := fmt.Fprintln(w, "already applied")
		return err
	}
	if res.Entry == nil {
		_, err := fmt.Fprintln(w, verb)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s (%s, %s units) id=%s\n",
		verb, res.Entry.Name, res.Entry.Role, res.Entry.Units, res.Entry.ID)
	return err
}
