package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/canvasagent/internal/core/db"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recently executed commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, queries, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		identity, _ := cmd.Flags().GetString("identity")
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := db.NewJournalStore(queries).List(ctx, identity, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tIDENTITY\tREQUEST\tSTATUS\tSTOP\tOPS\tITER\tMS\tCOMMAND")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				e.CreatedAt.UTC().Format(time.RFC3339), e.Identity, e.RequestID, e.Status,
				e.StopReason, e.OperationCount, e.Iterations, e.ElapsedMs, truncate(e.Command, 60))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.Flags().String("identity", "", "only show commands from this identity")
	journalCmd.Flags().Int("limit", db.DefaultJournalLimit, "maximum rows to show")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
