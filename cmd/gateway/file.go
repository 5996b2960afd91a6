package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ghimport/internal/github"
)

var fileRef string

var fileCmd = &cobra.Command{
	Use:   "file <owner/repo> <path>",
	Short: "Print a file from a repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runFile,
}

func init() {
	fileCmd.Flags().StringVar(&fileRef, "ref", "", "Branch, tag or commit (default branch when empty)")
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	owner, repo, err := github.ParseFullName(args[0])
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	file, err := c.File(cmd.Context(), owner, repo, fileRef, args[1])
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), file, func(w io.Writer) error {
		_, err := fmt.Fprint(w, file.Text)
		return err
	})
}
