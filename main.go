// Package main provides the verimeet CLI entry point.
// verimeet is a meeting assistant that fact-checks claims, catches
// scheduling and email intents, and keeps a rolling summary while a bot
// sits in the meeting.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verimeet/verimeet/cmd"
	"github.com/verimeet/verimeet/pkg/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "verimeet",
	Short: "VeriMeet - meeting assistant with live fact checking",
	Long: `verimeet runs a meeting assistant: a bot joins your meeting, streams
the transcript back, and the server fact-checks claims against the web,
schedules follow-ups, sends emails, and keeps a rolling summary. When the
meeting ends the summary is archived to Notion and mailed out.

COMMON WORKFLOWS:
  Run the server:     verimeet serve
  Join a meeting:     verimeet bot create <meeting-url>
  Check progress:     verimeet summary  |  verimeet bot status <bot-id>
  Replay a file:      verimeet simulate ./transcript.txt
  Store credentials:  verimeet keys set openai_api_key

DISCOVERY:
  verimeet <command> --help   Subcommands, flags, and examples`,
	SilenceUsage: true,
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get()
		if versionOutputJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(cmd.NewServeCommand())
	rootCmd.AddCommand(cmd.NewBotCommand(nil))
	rootCmd.AddCommand(cmd.NewSummaryCommand(nil))
	rootCmd.AddCommand(cmd.NewSimulateCommand(nil))
	rootCmd.AddCommand(cmd.NewKeysCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
