package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/canvasagent/internal/core/api"
	"github.com/solatis/canvasagent/internal/core/auth"
	"github.com/solatis/canvasagent/internal/core/config"
)

// EnvAPIKey supplies the client API key for send.
const EnvAPIKey = config.EnvPrefix + "_API_KEY"

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a command to a running service and print the operation batch as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addRequestFlags(sendCmd)
	sendCmd.Flags().String("addr", "localhost:50051", "service address")
	sendCmd.Flags().Duration("timeout", 2*time.Minute, "request timeout")
}

func runSend(cmd *cobra.Command, args []string) error {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return fmt.Errorf("%s is not set", EnvAPIKey)
	}
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, auth.MetadataKey, key)

	var trailer metadata.MD
	result, err := api.NewClient(conn).ExecuteCommand(ctx, requestFromFlags(cmd, args), grpc.Trailer(&trailer))
	if err != nil {
		st := status.Convert(err)
		if reset := trailer.Get(api.TrailerRateReset); len(reset) > 0 {
			return fmt.Errorf("%s: %s (rate window resets at unix %s)", st.Code(), st.Message(), reset[0])
		}
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
	return printJSON(result)
}
