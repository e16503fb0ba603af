package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gmbh-wizard/internal/archive"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/documents"
	"gmbh-wizard/pkg/registry"
)

var (
	mergeRecord   string
	mergeOut      string
	mergeRegistry string
	mergeList     bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Generate the founding documents offline",
	Long: `Merge the registered templates with the values of a YAML record file
and write the ZIP archive. No mail is sent.

Example record:
  einverstanden: Ja
  kanton: Zug
  gmbh_name: Muster GmbH
  vorname_gruender: Max
  nachname_gruender: Muster
  email_gruender: max@example.com`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeRecord, "record", "", "YAML file with the submission values")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "gruendungsdokumente.zip", "archive to write")
	mergeCmd.Flags().StringVar(&mergeRegistry, "registry", "documents/registry.json", "document registry")
	mergeCmd.Flags().BoolVar(&mergeList, "list", false, "list the merge fields of every template and exit")
}

func runMerge(cmd *cobra.Command, _ []string) error {
	reg, err := registry.LoadRegistry(mergeRegistry)
	if err != nil {
		return err
	}
	if err := reg.Validate(true); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if mergeList {
		for _, doc := range reg.Documents {
			names, err := documents.Fields(doc.File)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (%s)\n", doc.ID, doc.ArchiveName)
			for _, n := range names {
				fmt.Fprintf(out, "  %s\n", n)
			}
		}
		return nil
	}

	if mergeRecord == "" {
		return fmt.Errorf("--record is required")
	}
	record, err := readRecord(mergeRecord)
	if err != nil {
		return err
	}

	engine := documents.NewEngine(reg, documents.Config{}, logger.NewNoOpLogger())
	set, err := engine.MergeAll(cmd.Context(), record)
	if err != nil {
		return err
	}
	defer set.Cleanup()

	entries := make([]archive.Entry, 0, set.Len())
	for _, d := range set.Documents {
		entries = append(entries, archive.Entry{Path: d.Path, Name: d.Name})
	}
	if err := archive.Create(mergeOut, entries); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d documents written to %s\n", len(entries), mergeOut)
	return nil
}

// readRecord parses a flat YAML mapping. Scalars of any type are kept in
// their textual form.
func readRecord(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("record %s: %w", path, err)
	}
	record := make(map[string]string, len(raw))
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("record %s: value of %q is not a scalar", path, key)
		}
		record[key] = node.Value
	}
	return record, nil
}
