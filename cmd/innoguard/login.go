package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/screen/login"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange a role for an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			roleFlag, _ := cmd.Flags().GetString("role")
			quiet, _ := cmd.Flags().GetBool("quiet")

			role, err := model.ParseRole(roleFlag)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			nav := login.NavigatorFunc(func(ctx context.Context, _ string) error {
				fmt.Fprintf(a.out, "Logged in as %s\n", role.Label())
				if quiet {
					return nil
				}
				fmt.Fprintln(a.out)
				// the session is saved by now; a failed first page does not
				// undo the login
				screen := a.dashboardScreen()
				if err := screen.Mount(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "! %s\n", apperrors.MessageOf(err))
					return nil
				}
				renderDashboard(a.out, screen.View())
				return nil
			})

			screen := a.loginScreen(nav)
			if err := screen.SelectRole(role); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), login.SubmittingLabel)
			return screen.Login(cmd.Context())
		},
	}
	cmd.Flags().String("role", string(model.DefaultRole), "role to log in as: clinician, developer or researcher")
	cmd.Flags().BoolP("quiet", "q", false, "do not show the first page after logging in")
	return cmd
}
