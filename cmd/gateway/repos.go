package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ghimport/internal/filetree"
	"ghimport/internal/github"
	"ghimport/internal/insights"
)

var (
	treeRef   string
	treePath  string
	treeDepth int
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your repositories, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runRepos,
}

var branchesCmd = &cobra.Command{
	Use:   "branches <owner/repo>",
	Short: "List the branches of a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranches,
}

var treeCmd = &cobra.Command{
	Use:   "tree <owner/repo>",
	Short: "Print a repository's file tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeRef, "ref", "", "Branch, tag or commit (default branch when empty)")
	treeCmd.Flags().StringVar(&treePath, "path", "", "Directory to start from")
	treeCmd.Flags().IntVar(&treeDepth, "depth", 2, "Folder levels to expand")
	rootCmd.AddCommand(reposCmd, branchesCmd, treeCmd)
}

func runRepos(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	res := c.Repos()
	if err := res.Fetch(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", res.Snapshot().Err, err)
	}
	repos := res.Snapshot().Data
	now := time.Now()
	return printOutput(cmd.OutOrStdout(), repos, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVISIBILITY\tDEFAULT BRANCH\tUPDATED")
		for _, r := range repos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.FullName, visibility(r), r.DefaultBranch, updated(r.UpdatedAt, now))
		}
		return tw.Flush()
	})
}

func visibility(r github.Repository) string {
	if r.Private {
		return "private"
	}
	return "public"
}

func updated(raw string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "-"
	}
	return insights.RelativeTime(t, now)
}

func runBranches(cmd *cobra.Command, args []string) error {
	owner, repo, err := github.ParseFullName(args[0])
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	res := c.BranchList(owner, repo)
	if err := res.Fetch(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", res.Snapshot().Err, err)
	}
	branches := res.Snapshot().Data
	return printOutput(cmd.OutOrStdout(), branches, func(w io.Writer) error {
		for _, b := range branches {
			suffix := ""
			if b.Protected {
				suffix = " (protected)"
			}
			fmt.Fprintf(w, "%s%s\n", b.Name, suffix)
		}
		return nil
	})
}

func runTree(cmd *cobra.Command, args []string) error {
	owner, repo, err := github.ParseFullName(args[0])
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	tree := filetree.New(c.TreeLoader(owner, repo, treeRef), filetree.Options{Root: treePath})
	if err := tree.LoadAll(ctx, treeDepth); err != nil {
		return fmt.Errorf("load tree: %w", err)
	}
	nodes := tree.Nodes()
	return printOutput(cmd.OutOrStdout(), nodes, func(w io.Writer) error {
		printNodes(w, nodes, 0)
		return nil
	})
}

func printNodes(w io.Writer, nodes []*filetree.Node, depth int) {
	for _, n := range nodes {
		name := n.Name
		if n.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
		if n.Expanded {
			printNodes(w, n.Children, depth+1)
		}
	}
}
