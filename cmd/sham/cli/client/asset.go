package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/mwantia/sham/pkg/db/models"
	"github.com/spf13/cobra"
)

func NewAssetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage stored assets",
		Long:  "Store, fetch, list and delete assets directly against the configured stores.",
	}

	cmd.AddCommand(NewAssetPutCommand())
	cmd.AddCommand(NewAssetGetCommand())
	cmd.AddCommand(NewAssetListCommand())
	cmd.AddCommand(NewAssetRemoveCommand())

	return cmd
}

func NewAssetPutCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file as a new asset",
		Long:  "Stores the content of a file as a new asset and prints its id. Use '-' to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error

			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
				if name == "" {
					name = filepath.Base(args[0])
				}
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			id, err := service.Create(cmd.Context(), name, data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "asset name (defaults to the file name)")

	return cmd
}

func NewAssetGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch the content of an asset",
		Long:  "Writes the content of a visible asset to stdout or to the given output file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			data, err := service.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output != "" {
				return os.WriteFile(output, data, 0644)
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the content to this file")

	return cmd
}

func NewAssetListCommand() *cobra.Command {
	var tags []uint

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List visible assets",
		Long:  "Lists every visible asset, optionally only those carrying all of the given tags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			list, err := service.List(cmd.Context(), models.AssetFilter{TagIDs: tags})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, asset := range list {
				fmt.Fprintf(w, "%d\t%s\n", asset.ID, asset.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().UintSliceVarP(&tags, "tag", "t", nil, "only list assets carrying this tag id (repeatable)")

	return cmd
}

func NewAssetRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an asset",
		Long:  "Hides an asset from reads and listings. Its content stays on disk.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			return service.Delete(cmd.Context(), id)
		},
	}

	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid id", raw)
	}
	return uint(id), nil
}
