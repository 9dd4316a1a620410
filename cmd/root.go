package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nanunh/genstack/code_analyzer/models"
	"github.com/nanunh/genstack/config"
	"github.com/nanunh/genstack/constants/lipgloss"
	"github.com/nanunh/genstack/engine"
	"github.com/nanunh/genstack/project_store"
	"github.com/nanunh/genstack/token_management"
	token_contracts "github.com/nanunh/genstack/token_management/contracts"
	"github.com/nanunh/genstack/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// RootDependencies holds everything a command needs.
type RootDependencies struct {
	Cwd             string
	Config          *config.Config
	Logger          *pterm.Logger
	TokenManagement token_contracts.ITokenManagement
	Runtime         *engine.Runtime
}

var rootCmd = &cobra.Command{
	Use:   "genstack",
	Short: "Structural code model and targeted AI modification for generated projects",
	Long: `genstack keeps a cached structural model (functions, classes, imports, calls)
of every file in a project and uses it to scope AI-driven modifications to the
smallest relevant piece of code, validating the result before it is written.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(config.DefaultConfig.Version)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

// handleRootCommand loads configuration and builds the runtime. Callers must
// Close the returned dependencies.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}
	cfg, err := config.LoadConfigWithCache(rootCmd, cwd)
	if err != nil {
		return nil, err
	}
	logger := utils.NewLogger(cfg.LogLevel)
	tokens := token_management.NewTokenManager()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runtime, err := engine.FromConfig(ctx, cfg, tokens, logger)
	if err != nil {
		return nil, err
	}
	return &RootDependencies{
		Cwd:             cwd,
		Config:          cfg,
		Logger:          logger,
		TokenManagement: tokens,
		Runtime:         runtime,
	}, nil
}

func (d *RootDependencies) Close() {
	if d != nil && d.Runtime != nil {
		if err := d.Runtime.Close(); err != nil {
			d.Logger.Warn("failed to close registry", d.Logger.Args("error", err.Error()))
		}
	}
}

// resolveProject accepts a project id, an id prefix of at least 8
// characters, or a unique project name.
func (d *RootDependencies) resolveProject(ctx context.Context, ref string) (project_store.Project, error) {
	registry := d.Runtime.Registry()
	if p, err := registry.Get(ctx, ref); err == nil {
		return p, nil
	} else if !errors.Is(err, models.ErrProjectNotFound) {
		return project_store.Project{}, err
	}

	projects, err := registry.List(ctx)
	if err != nil {
		return project_store.Project{}, err
	}
	var matches []project_store.Project
	for _, p := range projects {
		if p.Name == ref || (len(ref) >= 8 && strings.HasPrefix(p.ID, ref)) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return project_store.Project{}, fmt.Errorf("%w: %s", models.ErrProjectNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return project_store.Project{}, fmt.Errorf("project reference %q is ambiguous (%d matches), use the project id", ref, len(matches))
	}
}

// printStructured writes v in the configured json/yaml format. It reports
// false when text output should be rendered instead.
func (d *RootDependencies) printStructured(v any) (bool, error) {
	return utils.WriteStructured(os.Stdout, d.Config.OutputFormat, v)
}

func newSpinner() pterm.SpinnerPrinter {
	return *pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
}
