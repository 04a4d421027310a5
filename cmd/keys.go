package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verimeet/verimeet/credentials"
)

// NewKeysCommand creates the keys command group for managing API
// credentials in the system keyring.
func NewKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API credentials",
		Long: `Manage API credentials stored in the system keyring. Environment
variables (VERIMEET_OPENAI_API_KEY and friends) override stored values.

Known credential names:
  ` + strings.Join(credentials.KnownKeys, "\n  "),
	}
	cmd.AddCommand(newKeysSetCommand())
	cmd.AddCommand(newKeysListCommand())
	cmd.AddCommand(newKeysDeleteCommand())
	return cmd
}

func newKeysSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential in the keyring",
		Long: `Store a credential in the system keyring. The value is read from
a hidden prompt, never from the command line, so it does not land in
shell history.

Example:
  verimeet keys set openai_api_key`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !credentials.IsKnownKey(name) {
				return fmt.Errorf("unknown credential %q, see 'verimeet keys --help'", name)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Value for %s: ", name)
			value, err := readSecret()
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("reading value: %w", err)
			}
			if value == "" {
				return fmt.Errorf("no value provided")
			}

			store := credentials.NewStore()
			if err := store.Set(name, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%s)\n", name, credentials.Mask(value))
			return nil
		},
	}
}

func newKeysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List which credentials are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentials.NewStore()
			out := cmd.OutOrStdout()
			for _, name := range credentials.KnownKeys {
				status := "not set"
				if os.Getenv(credentials.EnvVar(name)) != "" {
					status = "set (environment)"
				} else if store.Exists(name) {
					status = "set (keyring)"
				}
				fmt.Fprintf(out, "  %-24s %s\n", name, status)
			}
			return nil
		},
	}
}

func newKeysDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a credential from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentials.NewStore()
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// readSecret reads a value with terminal echo disabled, falling back to
// plain line input when stdin is not a terminal (pipes, CI).
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
