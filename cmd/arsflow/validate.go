package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arsflow/internal/expressions"
	"arsflow/internal/validation"
	"arsflow/pkg/transfer"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a scenario document file",
	Long: `Runs a scenario JSON document through the full validation pipeline
(structure, semantics, graph) and prints every issue found.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func newTransferManager() (*transfer.Manager, error) {
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	validator, err := validation.NewScenarioValidator(cel)
	if err != nil {
		return nil, err
	}
	return transfer.NewManager(validator, expressions.NewGoJQEngine()), nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	m, err := newTransferManager()
	if err != nil {
		return err
	}

	doc, result, _ := m.Import(data)

	for _, issue := range result.Errors {
		bad.Printf("error  ")
		fmt.Printf("%s: %s\n", issue.Path, issue.Message)
	}
	for _, issue := range result.Warnings {
		warn.Printf("warn   ")
		fmt.Printf("%s: %s\n", issue.Path, issue.Message)
	}

	if doc == nil {
		return fmt.Errorf("%s: %d validation errors", args[0], len(result.Errors))
	}

	good.Printf("ok     ")
	fmt.Printf("%s: %d nodes, %d edges", doc.Scenario.Name, len(doc.Nodes), len(doc.Edges))
	if len(result.Warnings) > 0 {
		subtle.Printf("  (%d warnings)", len(result.Warnings))
	}
	fmt.Println()
	return nil
}
