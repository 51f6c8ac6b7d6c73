package client

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
		Long:  "Create tags and attach them to or detach them from assets.",
	}

	cmd.AddCommand(NewTagCreateCommand())
	cmd.AddCommand(NewTagListCommand())
	cmd.AddCommand(NewTagAttachCommand())
	cmd.AddCommand(NewTagDetachCommand())
	cmd.AddCommand(NewTagForCommand())

	return cmd
}

func NewTagCreateCommand() *cobra.Command {
	var linked uint

	cmd := &cobra.Command{
		Use:   "create <key> [value]",
		Short: "Create a tag",
		Long:  "Creates a key-value tag, optionally scoped to a linked asset, and prints its id.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) > 1 {
				value = args[1]
			}

			var linkedAssetID *uint
			if cmd.Flags().Changed("linked") {
				linkedAssetID = &linked
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			id, err := service.CreateTag(cmd.Context(), args[0], value, linkedAssetID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().UintVarP(&linked, "linked", "l", 0, "id of the asset this tag points to")

	return cmd
}

func NewTagListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			tags, err := service.ListTags(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKEY\tVALUE\tLINKED")
			for _, tag := range tags {
				linked := "-"
				if tag.LinkedAssetID != nil {
					linked = fmt.Sprint(*tag.LinkedAssetID)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", tag.ID, tag.Key, tag.Value, linked)
			}
			return w.Flush()
		},
	}
}

func NewTagAttachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <asset-id> <tag-id>",
		Short: "Attach a tag to an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, tagID, err := parseIDPair(args)
			if err != nil {
				return err
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			return service.AttachTag(cmd.Context(), assetID, tagID)
		},
	}
}

func NewTagDetachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detach <asset-id> <tag-id>",
		Short: "Detach a tag from an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, tagID, err := parseIDPair(args)
			if err != nil {
				return err
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			return service.DetachTag(cmd.Context(), assetID, tagID)
		},
	}
}

func NewTagForCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "for <asset-id>",
		Short: "List the tag ids attached to an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parseID(args[0])
			if err != nil {
				return err
			}

			service, closer, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			tagIDs, err := service.TagsForAsset(cmd.Context(), assetID)
			if err != nil {
				return err
			}

			for _, id := range tagIDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func parseIDPair(args []string) (uint, uint, error) {
	assetID, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}

	tagID, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}

	return assetID, tagID, nil
}
