package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ghimport/internal/client"
)

var (
	gatewayURL   string
	githubToken  string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "GitHub import gateway",
	Long: "Serves the GitHub import API. The other commands talk to a running\n" +
		"gateway with a GitHub token sent as a bearer token.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", envOr("GHIMPORT_GATEWAY", client.DefaultBaseURL), "Gateway base URL")
	rootCmd.PersistentFlags().StringVar(&githubToken, "token", os.Getenv("GITHUB_TOKEN"), "GitHub token (defaults to $GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "human", "Output format (json, human)")
	addServeFlags(rootCmd)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newClient() (*client.Client, error) {
	if strings.TrimSpace(githubToken) == "" {
		return nil, fmt.Errorf("a GitHub token is required (--token or GITHUB_TOKEN)")
	}
	return client.New(client.Options{BaseURL: gatewayURL, Token: githubToken})
}

// printOutput writes v as JSON, or calls human for the default format.
func printOutput(w io.Writer, v any, human func(io.Writer) error) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "human", "":
		return human(w)
	default:
		return fmt.Errorf("unknown format %q (want json or human)", outputFormat)
	}
}
