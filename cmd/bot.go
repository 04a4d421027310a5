package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verimeet/verimeet/client"
)

// NewBotCommand creates the bot command group. Pass nil to build the API
// client from the --server flag at run time.
func NewBotCommand(api *client.APIClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage meeting bots",
	}
	cmd.AddCommand(newBotCreateCommand(api))
	cmd.AddCommand(newBotStatusCommand(api))
	return cmd
}

func newBotCreateCommand(api *client.APIClient) *cobra.Command {
	var (
		serverURL  string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "create <meeting-url>",
		Short: "Send a bot into a meeting",
		Long: `Send a bot into a meeting. The bot joins the meeting, streams the
transcript back to the server, and posts fact checks and action
confirmations into the meeting chat.

Examples:
  verimeet bot create https://meet.google.com/abc-defg-hij
  verimeet bot create https://meet.google.com/abc-defg-hij --output-json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(api, serverURL)
			info, err := c.CreateBot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !info.Success {
				return fmt.Errorf("creating bot: %s", info.Error)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "Bot %s is joining %s (status: %s)\n", info.BotID, info.MeetingURL, info.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL")
	cmd.Flags().BoolVar(&outputJSON, "output-json", false, "output as JSON")

	return cmd
}

func newBotStatusCommand(api *client.APIClient) *cobra.Command {
	var (
		serverURL  string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status <bot-id>",
		Short: "Show a bot's session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(api, serverURL)
			info, err := c.Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "Bot:      %s\n", info.BotID)
			fmt.Fprintf(out, "State:    %s\n", info.State)
			fmt.Fprintf(out, "Segments: %d\n", info.Segments)
			fmt.Fprintf(out, "Facts:    %d checked, %d verified\n", info.FactsChecked, info.FactsVerified)
			fmt.Fprintf(out, "Intents:  %d\n", info.Intents)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL")
	cmd.Flags().BoolVar(&outputJSON, "output-json", false, "output as JSON")

	return cmd
}
