package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"arsflow/internal/store"
	"arsflow/pkg/transfer"
)

var (
	exportOut    string
	exportFilter string
)

var exportCmd = &cobra.Command{
	Use:   "export [scenario-id]",
	Short: "Export a scenario as a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a scenario document into the store",
	Long: `Validates the document and, when it passes, creates a new draft
scenario with its nodes and connections. The new scenario ID is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportFilter, "jq", "", "jq filter applied to the document")
}

func openStore(ctx context.Context) (store.Store, error) {
	cfg := loadConfig()
	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func runExport(cmd *cobra.Command, args []string) error {
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

	m, err := newTransferManager()
	if err != nil {
		return err
	}

	var data []byte
	if exportFilter != "" {
		out, filterErr := m.ExportFiltered(ctx, sc, exportFilter)
		if filterErr != nil {
			return filterErr
		}
		if data, err = json.MarshalIndent(out, "", "  "); err != nil {
			return err
		}
	} else if data, err = m.Export(sc); err != nil {
		return err
	}

	if exportOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return err
	}
	good.Printf("exported ")
	fmt.Printf("%s → %s\n", sc.Name, exportOut)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	m, err := newTransferManager()
	if err != nil {
		return err
	}

	doc, result, err := m.Import(data)
	if err != nil {
		for _, issue := range result.Errors {
			bad.Printf("error  ")
			fmt.Printf("%s: %s\n", issue.Path, issue.Message)
		}
		return fmt.Errorf("%s: document is not importable", args[0])
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sc := transfer.ToScenario(doc)
	sc.ID = uuid.New().String()
	if err := st.CreateScenario(ctx, sc); err != nil {
		return err
	}
	for i := range sc.Nodes {
		if err := st.CreateNode(ctx, sc.ID, &sc.Nodes[i]); err != nil {
			return err
		}
	}
	for i := range sc.Connections {
		if err := st.CreateConnection(ctx, sc.ID, &sc.Connections[i]); err != nil {
			return err
		}
	}

	good.Printf("imported ")
	fmt.Printf("%s (%d nodes, %d connections)\n", sc.Name, len(sc.Nodes), len(sc.Connections))
	fmt.Println(sc.ID)
	return nil
}
