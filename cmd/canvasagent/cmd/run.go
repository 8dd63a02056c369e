package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/canvasagent/internal/core/db"
	"github.com/solatis/canvasagent/internal/types"
)

// cliIdentity owns requests issued from the local command line.
const cliIdentity = "cli"

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Execute one command locally and print the operation batch as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRequestFlags(runCmd)
	runCmd.Flags().String("model", "", "Gemini model name")
	runCmd.Flags().Bool("journal", false, "record the command in the database journal")
}

// addRequestFlags registers the canvas summary and request flags shared by run and send.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().Int("shapes", 0, "number of shapes on the canvas")
	cmd.Flags().Int("selected", 0, "number of selected shapes")
	cmd.Flags().String("request-id", "", "request id (generated when empty)")
	cmd.Flags().Int("max-iterations", 0, "iteration cap for this request (0 uses the server default)")
}

func requestFromFlags(cmd *cobra.Command, args []string) types.CommandRequest {
	shapes, _ := cmd.Flags().GetInt("shapes")
	selected, _ := cmd.Flags().GetInt("selected")
	requestID, _ := cmd.Flags().GetString("request-id")
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	if requestID == "" {
		requestID = types.NewRequestID()
	}
	return types.CommandRequest{
		Command:       strings.Join(args, " "),
		CanvasSummary: types.CanvasSummary{ShapeCount: shapes, SelectionCount: selected},
		RequestID:     requestID,
		MaxIterations: maxIterations,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var queries *db.Queries
	if record, _ := cmd.Flags().GetBool("journal"); record {
		database, q, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		queries = q
	}

	service, _, err := newCommandService(ctx, cfg, queries)
	if err != nil {
		return err
	}

	result, err := service.Execute(ctx, cliIdentity, requestFromFlags(cmd, args))
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
