package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the project registry",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name> [instructions]",
	Short: "Create an empty project under the projects directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		instructions := "No instructions available"
		if len(args) == 2 {
			instructions = args[1]
		}
		project, err := deps.Runtime.Registry().Create(cmd.Context(), args[0], instructions)
		if err != nil {
			return err
		}
		if ok, err := deps.printStructured(project); ok {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Created project %s (%s)", project.Name, project.ID)))
		fmt.Println(lipgloss.Gray.Render(project.Root))
		return nil
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add <dir> [name]",
	Short: "Register an existing directory as a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		project, err := deps.Runtime.Registry().Register(cmd.Context(), args[0], name)
		if err != nil {
			return err
		}
		if ok, err := deps.printStructured(project); ok {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Registered project %s (%s)", project.Name, project.ID)))
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		projects, err := deps.Runtime.Registry().List(cmd.Context())
		if err != nil {
			return err
		}
		if ok, err := deps.printStructured(projects); ok {
			return err
		}
		if len(projects) == 0 {
			fmt.Println(lipgloss.Yellow.Render("No projects registered."))
			return nil
		}
		data := pterm.TableData{{"ID", "Name", "Files", "Created", "Root"}}
		for _, p := range projects {
			data = append(data, []string{p.ID, p.Name, strconv.Itoa(p.FileCount), p.CreatedAt.Format("2006-01-02 15:04"), p.Root})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Unregister a project and clear its cached structures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removeFiles, _ := cmd.Flags().GetBool("remove-files")
		force, _ := cmd.Flags().GetBool("force")

		deps, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx := cmd.Context()
		project, err := deps.resolveProject(ctx, args[0])
		if err != nil {
			return err
		}
		if !force {
			question := fmt.Sprintf("Delete project %s (%s)?", project.Name, project.ID)
			if removeFiles {
				question = fmt.Sprintf("Delete project %s and remove %s?", project.Name, project.Root)
			}
			ok, err := utils.ConfirmPrompt(ctx, bufio.NewReader(os.Stdin), question)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(lipgloss.Yellow.Render("Delete cancelled."))
				return nil
			}
		}
		if err := deps.Runtime.Registry().Delete(ctx, project.ID, removeFiles); err != nil {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Deleted project %s", project.Name)))
		return nil
	},
}

func init() {
	projectDeleteCmd.Flags().Bool("remove-files", false, "Also remove the project directory")
	projectDeleteCmd.Flags().BoolP("force", "f", false, "Delete without confirmation")

	projectCmd.AddCommand(projectCreateCmd, projectAddCmd, projectListCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
