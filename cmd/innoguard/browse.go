package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Page through patients interactively",
		Long:  "Page through patients. Commands: n (next), p (previous), d (download CSV), r (reload), q (quit).",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			screen := a.dashboardScreen()

			if err := screen.Mount(ctx); errors.Is(err, apperrors.ErrSessionMissing) {
				return err
			}
			renderDashboard(a.out, screen.View())

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(a.out, "> ")
				if !in.Scan() {
					fmt.Fprintln(a.out)
					return in.Err()
				}

				var err error
				switch strings.ToLower(strings.TrimSpace(in.Text())) {
				case "n", "next":
					err = screen.Next(ctx)
				case "p", "prev", "previous":
					err = screen.Previous(ctx)
				case "r", "reload":
					err = screen.Mount(ctx)
				case "d", "download":
					saver := dashboard.FileSaver{}
					if err := screen.DownloadCSV(ctx, saver); err != nil {
						fmt.Fprintf(a.out, "! %s\n", apperrors.MessageOf(err))
					} else {
						fmt.Fprintf(a.out, "Saved %s\n", saver.Target(dashboard.CSVFilename))
					}
					continue
				case "q", "quit", "exit":
					return nil
				case "":
					continue
				default:
					fmt.Fprintln(a.out, "commands: n, p, d, r, q")
					continue
				}
				if errors.Is(err, apperrors.ErrSessionMissing) {
					return err
				}
				renderDashboard(a.out, screen.View())
			}
		},
	}
}
