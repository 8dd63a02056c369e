package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/canvasagent/internal/types"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Issue, revoke and list API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create <identity>",
	Short: "Issue a new API key for identity",
	Args:  cobra.ExactArgs(1),
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

		authenticator, err := newAuthenticator(queries, true)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		key, id, err := authenticator.Issue(ctx, args[0], name)
		if err != nil {
			return err
		}
		logger.Info("apikey.created", zap.String("api_key_id", string(id)), zap.String("identity", args[0]))

		fmt.Printf("API key ID: %s\n", id)
		fmt.Printf("API key:    %s\n", key)
		fmt.Println("Store this key now; it cannot be shown again.")
		return nil
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
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

		authenticator, err := newAuthenticator(queries, false)
		if err != nil {
			return err
		}
		if err := authenticator.Revoke(ctx, types.APIKeyID(args[0])); err != nil {
			return err
		}
		logger.Info("apikey.revoked", zap.String("api_key_id", args[0]))
		fmt.Printf("Revoked %s\n", args[0])
		return nil
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued API keys",
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

		authenticator, err := newAuthenticator(queries, false)
		if err != nil {
			return err
		}
		records, err := authenticator.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tIDENTITY\tNAME\tCREATED\tLAST USED\tREVOKED")
		for _, r := range records {
			lastUsed, revoked := "-", "-"
			if r.LastUsedAt.Valid {
				lastUsed = r.LastUsedAt.Time.UTC().Format(time.RFC3339)
			}
			if r.RevokedAt.Valid {
				revoked = r.RevokedAt.Time.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.APIKeyID, r.Identity, r.Name, r.CreatedAt.UTC().Format(time.RFC3339), lastUsed, revoked)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd, apikeyListCmd)
	apikeyCreateCmd.Flags().String("name", "", "human-readable key name")
}
