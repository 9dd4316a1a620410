package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/utils"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache [project]",
	Short: "Reset the structure cache",
	Long: `The 'reset-cache' command removes cached file structures. With a project
argument only that project's records are removed; without one every project is
cleared. Use this command to clear corrupted cache or after bulk external edits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		return handleResetCacheCommand(cmd, args, force, stats)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(cmd *cobra.Command, args []string, force bool, showStats bool) error {
	deps, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	var projectIDs []string
	if len(args) == 1 {
		project, err := deps.resolveProject(ctx, args[0])
		if err != nil {
			return err
		}
		projectIDs = []string{project.ID}
	} else {
		projects, err := deps.Runtime.Registry().List(ctx)
		if err != nil {
			return err
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}

	if showStats {
		for _, id := range projectIDs {
			stats, err := deps.Runtime.GetCacheStats(id)
			if err != nil {
				fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not show statistics for %s: %v", id, err)))
				continue
			}
			if ok, err := deps.printStructured(map[string]interface{}{"project": id, "stats": stats}); ok {
				if err != nil {
					return err
				}
				continue
			}
			printCacheStats(id, stats)
		}
		return nil
	}

	if len(projectIDs) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No projects registered. No cache to reset."))
		return nil
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		ok, err := utils.ConfirmPrompt(ctx, reader, fmt.Sprintf("Reset the structure cache of %d project(s)?", len(projectIDs)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinnerInstance, _ := newSpinner().Start("Resetting structure cache...")
	for _, id := range projectIDs {
		if err := deps.Runtime.ClearCache(id); err != nil {
			spinnerInstance.Stop()
			return fmt.Errorf("error resetting cache: %w", err)
		}
	}
	spinnerInstance.Stop()
	fmt.Println(lipgloss.Green.Render("✓ Structure cache has been successfully reset!"))
	return nil
}

func printCacheStats(projectID string, cacheStats map[string]interface{}) {
	fmt.Println(lipgloss.BlueSky.Render("Cache Statistics: " + projectID))
	storage, _ := cacheStats["storage"].(map[string]interface{})
	if dir, ok := storage["cache_dir"].(string); ok {
		fmt.Printf("  Cache Directory: %s\n", dir)
	}
	if files, ok := storage["cache_files"].(int); ok {
		fmt.Printf("  Cached Files: %d\n", files)
	}
	if size, ok := storage["total_size"].(int64); ok {
		fmt.Printf("  Total Size: %.2f MB\n", float64(size)/(1024*1024))
	}
	if entries, ok := storage["memory_entries"].(int); ok {
		fmt.Printf("  Memory Entries: %d\n", entries)
	}
	perf, _ := cacheStats["performance"].(map[string]interface{})
	if hitRate, ok := perf["hit_rate_percent"].(float64); ok {
		fmt.Printf("  Hit Rate: %.1f%%\n", hitRate)
	}
	if refreshes, ok := perf["refreshes"].(int64); ok {
		fmt.Printf("  Refreshes: %d\n", refreshes)
	}
}
