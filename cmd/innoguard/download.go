package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
)

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save the patient CSV export",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			saver := dashboard.FileSaver{Path: out}
			if err := a.dashboardScreen().DownloadCSV(cmd.Context(), saver); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s\n", saver.Target(dashboard.CSVFilename))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "file or directory to save to (default ./patients.csv)")
	return cmd
}
