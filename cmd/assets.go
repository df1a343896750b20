package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAssetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List or remove reference assets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reference assets, primary first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.engine.Snapshot().Assets
			if len(list) == 0 {
				fmt.Println("No reference assets. Start with `albumgen upload`.")
				return nil
			}
			for i, asset := range list {
				marker := " "
				if asset.IsPrimary {
					marker = "*"
				}
				captured := "-"
				if asset.CapturedAt != nil {
					captured = asset.CapturedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%s [%d] %s  added %s  captured %s\n", marker, i+1, asset.ID, asset.CreatedAt.Format("2006-01-02 15:04"), captured)
			}
			fmt.Printf("\n%d of %d slots used (* = primary)\n", len(list), a.cfg.MaxAssets)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a reference asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RemoveAsset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			if a.engine.Snapshot().Profile != nil {
				fmt.Println("The identity profile was kept; run `albumgen analyze` to refresh it.")
			}
			return nil
		},
	})
	return cmd
}
