// Package cmd provides CLI commands for the verimeet tool.
package cmd

import (
	"os"

	"github.com/verimeet/verimeet/client"
)

// DefaultServerURL is where commands look for a running server when no
// flag or environment variable says otherwise.
const DefaultServerURL = "http://localhost:8000"

// resolveServerURL picks the server address from the flag value, then
// $VERIMEET_SERVER_URL, then the default.
func resolveServerURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("VERIMEET_SERVER_URL"); v != "" {
		return v
	}
	return DefaultServerURL
}

// apiClient returns the injected client for tests, or builds one for the
// resolved server address.
func apiClient(injected *client.APIClient, serverFlag string) *client.APIClient {
	if injected != nil {
		return injected
	}
	return client.New(resolveServerURL(serverFlag), nil)
}
