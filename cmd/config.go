package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the saved API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-key [key]",
		Short: "Save the Gemini API key (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read key from stdin: %w", err)
				}
				key = line
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.creds.Save(cmd.Context(), strings.TrimSpace(key)); err != nil {
				return err
			}
			fmt.Printf("Saved API key %s\n", a.creds.Status(cmd.Context()).Masked)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-key",
		Short: "Remove the saved API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.creds.Clear(cmd.Context()); err != nil {
				return err
			}
			status := a.creds.Status(cmd.Context())
			if status.Configured {
				fmt.Printf("Saved key removed; still using %s from the environment\n", status.Masked)
				return nil
			}
			fmt.Println("Saved key removed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.creds.Status(cmd.Context())
			if !status.Configured {
				fmt.Println("No API key configured. Use `albumgen config set-key` or set GEMINI_API_KEY.")
				return nil
			}
			fmt.Printf("API key %s (source: %s)\n", status.Masked, status.Source)
			fmt.Printf("Store:  %s at %s\n", a.cfg.Store, a.cfg.DataDir)
			return nil
		},
	})

	return cmd
}
