package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arsflow/internal/diagram"
)

var diagramFormat string

var diagramCmd = &cobra.Command{
	Use:   "diagram [scenario-id]",
	Short: "Render a scenario graph as ASCII or Mermaid",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&diagramFormat, "format", "f", "ascii", "output format: ascii or mermaid")
	rootCmd.AddCommand(diagramCmd)
}

func runDiagram(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sc, err := st.GetScenario(ctx, args[0])
	if err != nil {
		return err
	}

	model, err := diagram.Build(sc, "")
	if err != nil {
		return err
	}

	switch diagramFormat {
	case "ascii":
		fmt.Print(diagram.RenderASCII(model))
	case "mermaid":
		fmt.Print(diagram.RenderMermaid(model))
	default:
		return fmt.Errorf("unknown format %q (want ascii or mermaid)", diagramFormat)
	}
	return nil
}
