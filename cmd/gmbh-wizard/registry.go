package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gmbh-wizard/internal/documents"
	"gmbh-wizard/pkg/registry"
)

var registryPath string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the document registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry and every template it references",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return err
		}
		if err := reg.Validate(true); err != nil {
			return err
		}
		for _, doc := range reg.Documents {
			if _, err := documents.Fields(doc.File); err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registry %s: %d documents OK\n", registryPath, len(reg.Documents))
		return nil
	},
}

var (
	addID          string
	addName        string
	addDescription string
	addArchiveName string
	addCantons     []string
	addTags        []string
)

var registryAddCmd = &cobra.Command{
	Use:   "add <template.docx>",
	Short: "Register a new template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return err
		}

		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := documents.Fields(file); err != nil {
			return fmt.Errorf("template %s: %w", args[0], err)
		}

		doc := registry.Document{
			ID:          addID,
			DisplayName: addName,
			Description: addDescription,
			File:        file,
			ArchiveName: addArchiveName,
			Cantons:     addCantons,
			Tags:        addTags,
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		if doc.ArchiveName == "" {
			doc.ArchiveName = filepath.Base(file)
		}

		if err := reg.Add(doc); err != nil {
			return err
		}
		if err := reg.Validate(true); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", doc.ID, registryPath)
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "registry", "documents/registry.json", "document registry")

	registryAddCmd.Flags().StringVar(&addID, "id", "", "document id (default: file name)")
	registryAddCmd.Flags().StringVar(&addName, "name", "", "display name")
	registryAddCmd.Flags().StringVar(&addDescription, "description", "", "description")
	registryAddCmd.Flags().StringVar(&addArchiveName, "archive-name", "", "entry name inside the archive (default: file name)")
	registryAddCmd.Flags().StringSliceVar(&addCantons, "canton", nil, "restrict to canton (repeatable)")
	registryAddCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag (repeatable)")

	registryCmd.AddCommand(registryValidateCmd, registryAddCmd)
}
