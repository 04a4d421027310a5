package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/verimeet/verimeet/client"
	"github.com/verimeet/verimeet/pkg/transcript"
)

// NewSimulateCommand creates the simulate command, which replays a
// transcript file against a running server as if a bot were in a live
// meeting. Pass nil to build the API client from the --server flag at
// run time.
func NewSimulateCommand(api *client.APIClient) *cobra.Command {
	var (
		serverURL string
		botID     string
		title     string
		delay     time.Duration
		finalize  bool
	)

	cmd := &cobra.Command{
		Use:   "simulate <transcript-file>",
		Short: "Replay a transcript file against a running server",
		Long: `Replay a transcript file as webhook events. Each speaker turn is
delivered as a transcript event, and a meeting_ended event follows unless
--no-finalize is set. Useful for exercising the pipeline without a live
meeting.

Supported line formats:
  0:05 : Alice : We shipped the new release yesterday.
  Alice: We shipped the new release yesterday.

Examples:
  verimeet simulate ./standup.txt
  verimeet simulate ./standup.txt --delay 2s --title "Monday standup"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening transcript: %w", err)
			}
			defer f.Close()

			parsed, err := transcript.Parse(f)
			if err != nil {
				return fmt.Errorf("parsing transcript: %w", err)
			}
			if len(parsed.Segments) == 0 {
				return fmt.Errorf("no speaker turns found in %s", args[0])
			}

			if botID == "" {
				botID = "sim-" + uuid.NewString()[:8]
			}

			c := apiClient(api, serverURL)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Replaying %d segments as bot %s\n", len(parsed.Segments), botID)

			if err := c.PostWebhook(ctx, client.WebhookEvent{
				EventType: "bot_joined",
				BotID:     botID,
			}); err != nil {
				return fmt.Errorf("joining: %w", err)
			}

			for i, seg := range parsed.Segments {
				if err := c.PostWebhook(ctx, client.WebhookEvent{
					EventType:  "transcript",
					BotID:      botID,
					Transcript: seg.Line(),
				}); err != nil {
					return fmt.Errorf("segment %d: %w", i+1, err)
				}
				fmt.Fprintf(out, "  [%d/%d] %s\n", i+1, len(parsed.Segments), seg.Speaker)

				if delay > 0 && i < len(parsed.Segments)-1 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(delay):
					}
				}
			}

			if finalize {
				if err := c.PostWebhook(ctx, client.WebhookEvent{
					EventType:    "meeting_ended",
					BotID:        botID,
					MeetingTitle: title,
				}); err != nil {
					return fmt.Errorf("finalizing: %w", err)
				}
				fmt.Fprintln(out, "Meeting finalized.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL")
	cmd.Flags().StringVar(&botID, "bot-id", "", "bot id to use (defaults to a generated one)")
	cmd.Flags().StringVar(&title, "title", "", "meeting title for the final summary")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between segments")
	cmd.Flags().BoolVar(&finalize, "finalize", true, "send meeting_ended after the last segment")

	return cmd
}
