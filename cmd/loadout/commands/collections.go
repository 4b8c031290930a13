package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List installed collections",
		Long: `List the collections visible from ./.loadout/collections and
~/.loadout/collections. A directory is a collection when it carries a
collection.yaml marker; project collections shadow global ones with the same
name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}

			cols := e.collections.List()

			if jsonOutput {
				data, err := json.MarshalIndent(cols, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(cols) == 0 {
				fmt.Println("No collections installed")
				return nil
			}

			for _, col := range cols {
				line := col.Name
				if col.Manifest.Version != "" {
					line += " " + col.Manifest.Version
				}
				if col.Manifest.Description != "" {
					line += "\t" + col.Manifest.Description
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	return cmd
}
