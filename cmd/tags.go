package cmd

import (
	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/tags"
	"github.com/spf13/cobra"
)

var (
	tagAdd    []string
	tagRemove []string
	tagIcon   string
	tagAvoid  bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags [tag]",
	Short: "View and adjust node tags",
	Long: `Tags group node public keys under a name with an optional icon.

Without arguments every tag is listed. With a tag name the tag is shown, or
created and adjusted when --add, --remove, --icon or --avoid is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := homePaths()
		if err != nil {
			return err
		}
		internal.EnsureDir(paths.Base)

		store, err := tags.Open(paths.TagsDBPath())
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		adjusting := len(tagAdd) > 0 || len(tagRemove) > 0 || cmd.Flags().Changed("icon") || cmd.Flags().Changed("avoid")

		if len(args) == 0 {
			if adjusting {
				return internal.Errorf(internal.KindInvalidArgument, "ExpectedTagNameToAdjustTag", "name the tag to adjust")
			}
			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			return renderResult(out, tags.Table(list))
		}

		if !adjusting {
			tag, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderResult(out, tags.Table{tag})
		}

		adj := tags.Adjustment{Tag: args[0], Add: tagAdd, Remove: tagRemove}
		if cmd.Flags().Changed("icon") {
			icon := tagIcon
			adj.Icon = &icon
		}
		if cmd.Flags().Changed("avoid") {
			avoid := tagAvoid
			adj.IsAvoided = &avoid
		}
		tag, err := store.Adjust(ctx, adj)
		if err != nil {
			return err
		}
		return renderResult(out, tags.Table{tag})
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().StringArrayVar(&tagAdd, "add", nil, "Add a node public key to the tag (repeatable)")
	tagsCmd.Flags().StringArrayVar(&tagRemove, "remove", nil, "Remove a node public key from the tag (repeatable)")
	tagsCmd.Flags().StringVar(&tagIcon, "icon", "", "Icon shown next to the tag (--icon \"\" clears it)")
	tagsCmd.Flags().BoolVar(&tagAvoid, "avoid", false, "Mark the tagged nodes as avoided (--avoid=false clears it)")
}
