package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ghimport/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the gateway accepts the token",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Gateway       string `json:"gateway"`
	Authenticated bool   `json:"authenticated"`
}

// runStatus works without a token; the gateway then reports false.
func runStatus(cmd *cobra.Command, _ []string) error {
	c, err := client.New(client.Options{BaseURL: gatewayURL, Token: githubToken})
	if err != nil {
		return err
	}
	ok, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}
	res := statusOutput{Gateway: gatewayURL, Authenticated: ok}
	return printOutput(cmd.OutOrStdout(), res, func(w io.Writer) error {
		if ok {
			_, err := fmt.Fprintf(w, "Authenticated with %s\n", gatewayURL)
			return err
		}
		_, err := fmt.Fprintf(w, "Not authenticated with %s\n", gatewayURL)
		return err
	})
}
