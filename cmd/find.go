package cmd

import (
	"fmt"
	"strconv"

	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <project> <name>",
	Short: "Find functions, classes and variables by name across a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		matches, err := deps.Runtime.FindElements(ctx, project.ID, args[1])
		if err != nil {
			return err
		}

		if ok, err := deps.printStructured(matches); ok {
			return err
		}
		if len(matches) == 0 {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("No elements named '%s' found.", args[1])))
			return nil
		}
		data := pterm.TableData{{"Kind", "Name", "Path", "Lines"}}
		for _, m := range matches {
			data = append(data, []string{m.Kind, m.Name, m.Path, strconv.Itoa(m.Line) + "-" + strconv.Itoa(m.EndLine)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
