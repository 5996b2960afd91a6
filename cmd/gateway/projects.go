package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ghimport/internal/github"
	"ghimport/internal/insights"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage imported projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported projects, newest first",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsImportCmd = &cobra.Command{
	Use:   "import <owner/repo> [branch]",
	Short: "Import a repository branch (default branch when omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runProjectsImport,
}

var projectsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an imported project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsRemove,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one imported project and its import status",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsSnapshotCmd = &cobra.Command{
	Use:   "snapshot <id>",
	Short: "Show what was captured when a project was imported",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsSnapshot,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsImportCmd, projectsRemoveCmd, projectsShowCmd, projectsSnapshotCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	res := c.ProjectList()
	if err := res.Fetch(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", res.Snapshot().Err, err)
	}
	projects := res.Snapshot().Data
	now := time.Now()
	return printOutput(cmd.OutOrStdout(), projects, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tREPOSITORY\tBRANCH\tSTATUS\tIMPORTED")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Repository.FullName, p.Branch, p.Status, insights.RelativeTime(p.ImportedAt, now))
		}
		return tw.Flush()
	})
}

// runProjectsImport looks the repository up in the caller's list so the
// stored project carries the full repository record.
func runProjectsImport(cmd *cobra.Command, args []string) error {
	if _, _, err := github.ParseFullName(args[0]); err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	repos, err := c.Repositories(cmd.Context())
	if err != nil {
		return err
	}
	var repo *github.Repository
	for i := range repos {
		if repos[i].FullName == args[0] {
			repo = &repos[i]
			break
		}
	}
	if repo == nil {
		return fmt.Errorf("repository %s not found among your repositories", args[0])
	}
	branch := repo.DefaultBranch
	if len(args) == 2 {
		branch = args[1]
	}
	res, err := c.Import(cmd.Context(), *repo, branch)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), res, func(w io.Writer) error {
		if res.Created {
			_, err := fmt.Fprintf(w, "Imported %s@%s as %s\n", repo.FullName, branch, res.ID)
			return err
		}
		_, err := fmt.Fprintf(w, "%s@%s was already imported as %s\n", repo.FullName, branch, res.ID)
		return err
	})
}

func runProjectsRemove(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.RemoveProject(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	p, err := c.Project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), p, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "ID\t%s\n", p.ID)
		fmt.Fprintf(tw, "Repository\t%s\n", p.Repository.FullName)
		fmt.Fprintf(tw, "Branch\t%s\n", p.Branch)
		fmt.Fprintf(tw, "Status\t%s\n", p.Status)
		if p.Error != "" {
			fmt.Fprintf(tw, "Error\t%s\n", p.Error)
		}
		fmt.Fprintf(tw, "Archive\t%s\n", p.ZipURL)
		return tw.Flush()
	})
}

func runProjectsSnapshot(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	snap, err := c.Snapshot(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), snap, func(w io.Writer) error {
		fmt.Fprintf(w, "%s@%s captured %s\n", snap.Repository.FullName, snap.Branch, insights.RelativeTime(snap.CapturedAt, time.Now()))
		for _, l := range insights.LanguageComposition(snap.Languages) {
			fmt.Fprintf(w, "  %-12s %5.1f%%\n", l.Language, l.Percentage)
		}
		for _, c := range snap.Root {
			name := c.Name
			if c.IsDir() {
				name += "/"
			}
			fmt.Fprintln(w, name)
		}
		return nil
	})
}
