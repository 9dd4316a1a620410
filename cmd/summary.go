package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <project>",
	Short: "Summarize the structure of every file in a project",
	Args:  cobra.ExactArgs(1),
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

		spinner, _ := newSpinner().Start("Analyzing project...")
		summary, err := deps.Runtime.GetProjectSummary(ctx, project.ID)
		spinner.Stop()
		if err != nil {
			return err
		}

		if ok, err := deps.printStructured(summary); ok {
			return err
		}
		renderSummary(project.Name, summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func renderSummary(name string, s models.ProjectStructureSummary) {
	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("%s (%s)\nfiles: %d  functions: %d  classes: %d  lines: %d",
		lipgloss.Bold.Render(name), s.ProjectID, s.TotalFiles, s.TotalFunctions, s.TotalClasses, s.TotalLines)))

	data := pterm.TableData{{"Path", "Language", "Strategy", "Functions", "Classes", "Lines"}}
	for _, f := range s.Files {
		data = append(data, []string{
			f.Path, f.Language, string(f.Strategy),
			strconv.Itoa(len(f.Functions)), strconv.Itoa(len(f.Classes)), strconv.Itoa(f.TotalLines),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	languages := make([]string, 0, len(s.LanguageHistogram))
	for lang := range s.LanguageHistogram {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	bars := make(pterm.Bars, 0, len(languages))
	for _, lang := range languages {
		bars = append(bars, pterm.Bar{Label: lang, Value: s.LanguageHistogram[lang]})
	}
	if len(bars) > 0 {
		fmt.Println(lipgloss.BlueSky.Render("Languages:"))
		_ = pterm.DefaultBarChart.WithHorizontal().WithBars(bars).WithShowValue().Render()
	}
}
