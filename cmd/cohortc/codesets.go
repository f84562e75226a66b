package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/config"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/vocab"
)

var codesetsCmd = &cobra.Command{
	Use:   "codesets <cohort.json>",
	Short: "Compile the definition's concept sets to SQL",
	Long: `Codesets prints the SQL of the compiled codeset relation
(codeset_id, concept_id) for the configured dialect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dialectName, _ := cmd.Flags().GetString("dialect")
		if dialectName == "" {
			dialectName = config.GetString("backend")
		}
		d, err := dialect.ForName(dialectName)
		if err != nil {
			return err
		}
		expr, _, err := loadExpression(args[0])
		if err != nil {
			return err
		}
		vocabSchema := config.GetString("vocab-schema")
		if vocabSchema == "" {
			vocabSchema = config.GetString("cdm-schema")
		}
		tables := vocab.Tables{
			Concept:             dialect.QualifyTable(d, vocabSchema, "concept"),
			ConceptAncestor:     dialect.QualifyTable(d, vocabSchema, "concept_ancestor"),
			ConceptRelationship: dialect.QualifyTable(d, vocabSchema, "concept_relationship"),
		}
		rel := vocab.CompileCodesets(d, tables, expr.ConceptSets)
		fmt.Println(rel.SQL())
		return nil
	},
}

func init() {
	codesetsCmd.Flags().String("dialect", "", "target dialect (defaults to the configured backend)")
	rootCmd.AddCommand(codesetsCmd)
}
