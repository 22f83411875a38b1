package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/innoguard/internal/session"
)

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.store.Load(cmd.Context(), "")
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Role: %s\n", sess.Role)
			fmt.Fprintf(a.out, "File: %s\n", a.store.Path())
			if exp, ok := session.ExpiresAt(sess.Token); ok {
				state := "valid"
				if time.Now().After(exp) {
					state = "expired"
				}
				fmt.Fprintf(a.out, "Expires: %s (%s)\n", exp.Local().Format(time.RFC1123), state)
			}
			return nil
		},
	}
}
