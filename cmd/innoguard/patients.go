package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Show one page of patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			asJSON, _ := cmd.Flags().GetBool("json")
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			screen := a.dashboardScreen()
			if err := screen.SetPage(cmd.Context(), page-1); err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(screen.View())
			}
			renderDashboard(a.out, screen.View())
			return nil
		},
	}
	cmd.Flags().Int("page", 1, "page number, starting at 1")
	cmd.Flags().Bool("json", false, "print the dashboard as JSON")
	return cmd
}
