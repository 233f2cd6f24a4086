// ABOUTME: CLI commands to manage projects
// ABOUTME: Each project is one SQLite database registered in the workspace
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	projectDescription string
)

// NewProjectsCmd creates the projects command group
func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Create, list and delete projects",
		Long: `Manage projects.

A project is a named SQLite database with its own conversations,
documents and embeddings.

Examples:
  querychat projects create sales --description "2024 orders"
  querychat projects list
  querychat projects delete sales`,
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectsCreate,
	}
	createCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")

	cmd.AddCommand(
		createCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List projects",
			Args:  cobra.NoArgs,
			RunE:  runProjectsList,
		},
		&cobra.Command{
			Use:   "delete <id|name>",
			Short: "Delete a project and its database",
			Args:  cobra.ExactArgs(1),
			RunE:  runProjectsDelete,
		},
	)

	return cmd
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := a.Workspace.CreateProject(cmd.Context(), args[0], projectDescription)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, p)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
	}
	return nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	projects, err := a.Workspace.ListProjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, projects)
	}
	if len(projects) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No projects yet\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tDESCRIPTION\tUPDATED\tID\n")
	fmt.Fprintf(w, "----\t-----------\t-------\t--\n")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(p.Name, 25),
			truncate(p.Description, 40),
			formatTime(p.UpdatedAt),
			p.ID)
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d project(s)\n", len(projects))
	}
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := a.Workspace.FindProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := a.Workspace.DeleteProject(cmd.Context(), p.ID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", p.Name)
	}
	return nil
}
