package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verimeet/verimeet/client"
)

// NewSummaryCommand creates the summary command. Pass nil to build the
// API client from the --server flag at run time.
func NewSummaryCommand(api *client.APIClient) *cobra.Command {
	var (
		serverURL string
		botID     string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the rolling summary of a meeting",
		Long: `Show the current rolling summary. Without --bot-id the most
recently created session is used.

Examples:
  verimeet summary
  verimeet summary --bot-id bot-abc123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(api, serverURL)
			info, err := c.Summary(cmd.Context(), botID)
			if err != nil {
				return err
			}
			if !info.Success {
				return fmt.Errorf("%s", info.Error)
			}
			if info.Summary == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(no summary yet)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.Summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL")
	cmd.Flags().StringVar(&botID, "bot-id", "", "session to summarize (defaults to most recent)")

	return cmd
}
