package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/utils"
	"github.com/spf13/cobra"
)

var modifyCmd = &cobra.Command{
	Use:   "modify <project> <path> <instruction...>",
	Short: "Apply a targeted AI modification to one file",
	Long: `The 'modify' command scopes the instruction to the function or class it names
(or to the whole file when none is named), asks the configured AI provider for
replacement code, validates it and only then writes the file. A backup of the
original is written first unless --backup=false.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		show, _ := cmd.Flags().GetBool("show")
		return handleModifyCommand(cmd, args[0], args[1], strings.Join(args[2:], " "), yes, show)
	},
}

func init() {
	modifyCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	modifyCmd.Flags().Bool("show", false, "Print the highlighted modified content")
	rootCmd.AddCommand(modifyCmd)
}

func handleModifyCommand(cmd *cobra.Command, projectRef, path, instruction string, yes, show bool) error {
	if strings.TrimSpace(instruction) == "" {
		return errors.New("instruction cannot be empty")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	defer deps.Close()

	project, err := deps.resolveProject(ctx, projectRef)
	if err != nil {
		return err
	}

	if !yes {
		question := fmt.Sprintf("Modify %s in %s: %q?", path, project.Name, instruction)
		ok, err := utils.ConfirmPrompt(ctx, bufio.NewReader(os.Stdin), question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(lipgloss.Yellow.Render("Modification cancelled."))
			return nil
		}
	}

	spinner, _ := newSpinner().Start("Generating modification...")
	result, err := deps.Runtime.Modify(ctx, project.ID, path, instruction)
	spinner.Stop()

	if ok, encErr := deps.printStructured(result); ok {
		if encErr != nil {
			return encErr
		}
		return err
	}
	renderModification(ctx, deps, path, result, show)
	if deps.Config.AIProviderConfig != nil {
		if total, _, _ := deps.TokenManagement.GetCurrentTokenUsage(); total > 0 {
			deps.TokenManagement.DisplayTokens(deps.Config.AIProviderConfig.Provider, deps.Config.AIProviderConfig.Model)
		}
	}
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("modification %s", result.Outcome)
	}
	return nil
}

func renderModification(ctx context.Context, deps *RootDependencies, path string, result models.ModificationResult, show bool) {
	switch result.Outcome {
	case models.OutcomeApplied:
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ %s modified (%s)", path, result.StrategyUsed)))
	case models.OutcomeUnchanged:
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("%s unchanged (%s)", path, result.StrategyUsed)))
	default:
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("✗ %s not modified: %s", path, result.Outcome)))
	}

	utils.RenderChanges(os.Stdout, result.Changes)
	for _, is := range result.Diagnostics {
		style := lipgloss.Yellow
		if is.Severity == models.SeverityError {
			style = lipgloss.Red
		}
		fmt.Println(style.Render("  " + is.String()))
	}
	if result.BackupPath != "" {
		fmt.Println(lipgloss.Gray.Render("backup: " + result.BackupPath))
	}
	if show && result.ModifiedContent != "" {
		fmt.Println()
		if err := utils.RenderCode(ctx, os.Stdout, result.ModifiedContent, utils.LexerFor(path), deps.Config.Theme); err != nil {
			fmt.Println(result.ModifiedContent)
		}
	}
}
