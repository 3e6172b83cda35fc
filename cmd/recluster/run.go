package main

import (
	"encoding/json"
	"fmt"
	"os"

	"ai-concept-engine/internal/bootstrap"
	"ai-concept-engine/internal/config"
	"ai-concept-engine/internal/dto"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/repository/memory"
	"ai-concept-engine/internal/service"
	"ai-concept-engine/pkg/concept/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one re-clustering pass from a JSON request file",
		RunE:  runRecluster,
	}
	cmd.Flags().StringP("file", "f", "", "Run request JSON (clusters, titles)")
	cmd.Flags().StringP("state", "s", "", "State file read before and written after the run; replaces DB/Redis")
	cmd.Flags().String("namer", "", "Override LLM_PROVIDER (ollama, openai, rules)")
	cmd.Flags().Bool("json", false, "Print the full response as JSON")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runRecluster(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	statePath, _ := cmd.Flags().GetString("state")
	namerName, _ := cmd.Flags().GetString("namer")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	cfg := config.Load()
	if namerName != "" {
		cfg.Ai.LLMProvider = namerName
	}
	log := logger.NewZapLogger(cfg.App.LogFilePath, true)
	defer log.Sync()

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var req dto.RunRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Trigger == "" {
		req.Trigger = "cli"
	}

	st, err := openStores(ctx, cfg, log, statePath)
	if err != nil {
		return err
	}
	defer st.close()

	namer, err := bootstrap.NewNamer(cfg, log)
	if err != nil {
		return err
	}
	coordinator, err := pipeline.NewCoordinator(namer, bootstrap.PipelineConfig(cfg), log)
	if err != nil {
		return err
	}
	svc := service.NewConceptService(service.ConceptServiceDeps{
		Coordinator: coordinator,
		Concepts:    st.concepts,
		Snapshots:   st.snapshots,
		Runs:        memory.NewRunRepository(1),
		Titles:      memory.NewTitleCache(memory.DefaultTitleTTL),
		Logger:      log,
	})

	color.Cyan("🚀 Running concept pass over %d clusters (namer: %s)", len(req.Clusters), cfg.Ai.LLMProvider)
	res, err := svc.Run(ctx, &req)
	if err != nil {
		return err
	}

	if statePath != "" {
		if err := writeState(ctx, statePath, st); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}

	if asJSON {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return nil
	}
	printReport(res)
	return nil
}

func printReport(res *dto.RunResponse) {
	stats := res.Report.Stats

	color.Yellow("\nConcepts")
	for _, c := range res.Concepts {
		line := fmt.Sprintf("  %-32s %3d notes  score %.2f  cluster %s", c.CanonicalName, len(c.NoteIds), c.QuizzabilityScore, c.ClusterId)
		if c.IsQuizzable {
			color.Green("%s", line)
		} else {
			color.White("%s", line)
		}
	}
	if len(res.RemovedConceptIds) > 0 {
		color.Yellow("\nRemoved")
		for _, id := range res.RemovedConceptIds {
			color.Red("  %s", id)
		}
	}
	if len(res.BatchErrors) > 0 {
		color.Yellow("\nNaming failures (fallback names used)")
		for _, e := range res.BatchErrors {
			color.Red("  %s", e)
		}
	}

	color.Yellow("\nSummary")
	fmt.Printf("  concepts %d (quizzable %d, new %d, carried %d, folded %d, destroyed %d)\n",
		stats.TotalConcepts, stats.QuizzableConcepts, stats.NewConcepts, stats.CarriedConcepts, stats.FoldedConcepts, stats.DestroyedConcepts)
	fmt.Printf("  evolution: unchanged %d, renamed %d, remapped %d, dissolved %d\n",
		stats.Evolution.Unchanged, stats.Evolution.Renamed, stats.Evolution.Remapped, stats.Evolution.Dissolved)
	fmt.Printf("  merges %d, misfits removed %d, empty clusters %d\n",
		stats.MergedClusters, stats.MisfitNotesRemoved, stats.EmptyClusters)
	fmt.Printf("  tokens in %d / out %d (estimated prompt %d), cost $%.4f, %dms\n",
		stats.Usage.InputTokens, stats.Usage.OutputTokens, stats.EstimatedTokens, stats.EstimatedCostUSD, stats.DurationMillis)
	color.Green("✅ Run %s %s", res.Report.Id, res.Report.Status)
}
