package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func loginCommand() *cobra.Command {
	var email string
	var password string
	var passwordStdin bool
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if passwordStdin {
				line, err := bufio.NewReader(app.stdin).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				password = os.Getenv("SG_PASSWORD")
			}
			if !cmd.Flags().Changed("remember") {
				remember = app.config.Remember
			}

			result, err := app.service.Login(ctx, app.creds, strings.TrimSpace(email), password, remember)
			if err != nil {
				return err
			}
			return app.done(result.Message)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or SG_PASSWORD)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&remember, "remember", false, "keep the session across reboots")
	return cmd
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			result, err := app.service.Logout(app.creds)
			if err != nil {
				return err
			}
			return app.done(result.Message)
		},
	}
}
