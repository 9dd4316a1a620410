package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var structureCmd = &cobra.Command{
	Use:   "structure <project> <path>",
	Short: "Show the cached structure of one file",
	Long: `The 'structure' command prints the functions, classes, imports and variables
of a project file. The cached record is used when it is still fresh; otherwise
the file is extracted again.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		showSource, _ := cmd.Flags().GetBool("source")
		return handleStructureCommand(cmd, args[0], args[1], false, showSource)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <project> <path>",
	Short: "Re-extract the structure of one file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleStructureCommand(cmd, args[0], args[1], true, false)
	},
}

func init() {
	structureCmd.Flags().Bool("source", false, "Print the highlighted file content after the structure")
	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(refreshCmd)
}

func handleStructureCommand(cmd *cobra.Command, projectRef, path string, refresh, showSource bool) error {
	deps, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	project, err := deps.resolveProject(ctx, projectRef)
	if err != nil {
		return err
	}

	var structure models.FileStructure
	if refresh {
		structure, err = deps.Runtime.RefreshStructure(ctx, project.ID, path)
	} else {
		structure, err = deps.Runtime.GetStructure(ctx, project.ID, path)
	}
	if err != nil {
		return err
	}

	if ok, err := deps.printStructured(structure); ok {
		return err
	}
	renderStructure(structure)

	if showSource {
		content, err := os.ReadFile(filepath.Join(project.Root, filepath.FromSlash(structure.Path)))
		if err != nil {
			return err
		}
		fmt.Println()
		return utils.RenderCode(ctx, os.Stdout, string(content), utils.LexerFor(structure.Path), deps.Config.Theme)
	}
	return nil
}

func renderStructure(s models.FileStructure) {
	header := fmt.Sprintf("%s\nlanguage: %s  strategy: %s  lines: %d  complexity: %d",
		lipgloss.Bold.Render(s.Path), s.Language, s.Strategy, s.TotalLines, s.ComplexityScore)
	if s.HasSyntaxErrors {
		header += "\n" + lipgloss.Yellow.Render("syntax errors detected")
	}
	fmt.Println(lipgloss.BoxStyle.Render(header))

	if len(s.Functions) > 0 {
		data := pterm.TableData{{"Function", "Params", "Lines", "Calls"}}
		for _, fn := range s.Functions {
			data = append(data, []string{
				fn.Name,
				strings.Join(fn.Params, ", "),
				strconv.Itoa(fn.Line) + "-" + strconv.Itoa(fn.EndLine),
				strings.Join(fn.Calls, ", "),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if len(s.Classes) > 0 {
		data := pterm.TableData{{"Class", "Lines", "Methods"}}
		for _, cls := range s.Classes {
			data = append(data, []string{
				cls.Name,
				strconv.Itoa(cls.Line) + "-" + strconv.Itoa(cls.EndLine),
				strings.Join(cls.Methods, ", "),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if len(s.Imports) > 0 {
		fmt.Println(lipgloss.BlueSky.Render("Imports:"))
		for _, imp := range s.Imports {
			fmt.Println("  " + imp)
		}
	}
	if len(s.Variables) > 0 {
		fmt.Println(lipgloss.BlueSky.Render("Variables:"))
		fmt.Println("  " + strings.Join(s.Variables, ", "))
	}
}
