package main

import (
	"fmt"

	"ai-concept-engine/internal/config"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/repository/contract"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newConceptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List stored concepts",
		RunE:  runConcepts,
	}
	cmd.Flags().StringP("state", "s", "", "Read from a state file instead of DB")
	cmd.Flags().Bool("quizzable", false, "Only quizzable concepts")
	cmd.Flags().StringP("query", "q", "", "Name substring")
	return cmd
}

func runConcepts(cmd *cobra.Command, args []string) error {
	statePath, _ := cmd.Flags().GetString("state")
	onlyQuiz, _ := cmd.Flags().GetBool("quizzable")
	query, _ := cmd.Flags().GetString("query")
	ctx := cmd.Context()

	cfg := config.Load()
	st, err := openStores(ctx, cfg, logger.NewNopLogger(), statePath)
	if err != nil {
		return err
	}
	defer st.close()

	filter := contract.ConceptFilter{Search: query}
	if onlyQuiz {
		filter.Quizzable = &onlyQuiz
	}
	concepts, err := st.concepts.FindAll(ctx, filter)
	if err != nil {
		return err
	}

	if len(concepts) == 0 {
		color.Yellow("No concepts stored")
		return nil
	}
	for _, c := range concepts {
		fmt.Printf("%s  %-32s %3d notes  score %.2f  history %d\n",
			c.Id, c.CanonicalName, len(c.NoteIds), c.QuizzabilityScore, len(c.EvolutionHistory))
	}
	return nil
}
