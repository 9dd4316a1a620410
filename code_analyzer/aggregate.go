package code_analyzer

import (
	"context"
	"sort"
	"sync"

	"github.com/nanunh/genstack/code_analyzer/models"
	"golang.org/x/sync/errgroup"
)

// Aggregate folds every file of a project into a summary. Stale records are
// refreshed transparently through the cache, records of files that no longer
// exist are pruned, and files that cannot be read are skipped.
func (analyzer *CodeAnalyzer) Aggregate(ctx context.Context, projectID string) (models.ProjectStructureSummary, error) {
	entries, err := analyzer.files.ListFiles(ctx, projectID)
	if err != nil {
		return models.ProjectStructureSummary{}, err
	}

	structures := make([]*models.FileStructure, len(entries))
	live := make(map[string]struct{}, len(entries))
	var liveMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzer.workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			structure, err := analyzer.cache.Get(gctx, projectID, entry.Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				analyzer.logger.Warn("skipping file in project summary", analyzer.logger.Args("project", projectID, "path", entry.Path, "error", err.Error()))
				return nil
			}
			structures[i] = &structure
			liveMu.Lock()
			live[structure.Path] = struct{}{}
			liveMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ProjectStructureSummary{}, err
	}

	if removed, err := analyzer.cache.Prune(projectID, live); err != nil {
		analyzer.logger.Warn("failed to prune structure cache", analyzer.logger.Args("project", projectID, "error", err.Error()))
	} else if removed > 0 {
		analyzer.logger.Debug("pruned stale structure records", analyzer.logger.Args("project", projectID, "removed", removed))
	}

	summary := models.ProjectStructureSummary{
		ProjectID:         projectID,
		LanguageHistogram: map[string]int{},
		StrategyHistogram: map[string]int{},
		Files:             []models.FileStructure{},
	}
	for _, s := range structures {
		if s == nil {
			continue
		}
		summary.TotalFiles++
		summary.TotalFunctions += len(s.Functions)
		summary.TotalClasses += len(s.Classes)
		summary.TotalLines += s.TotalLines
		summary.LanguageHistogram[s.Language]++
		summary.StrategyHistogram[string(s.Strategy)]++
		summary.Files = append(summary.Files, *s)
	}
	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].Path < summary.Files[j].Path
	})
	return summary, nil
}
