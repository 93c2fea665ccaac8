package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	sessiondom "ayyooya/internal/domain/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if password == "" {
				password = readLine(cmd, "Password: ")
			}
			var s sessiondom.Session
			err = c.Guard.Do(cmd.Context(), "session.sign_in", func(ctx context.Context) error {
				s, err = c.Sessions.SignIn(ctx, email, password)
				return err
			})
			if err != nil {
				return err
			}
			printSession(a, s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if password == "" {
				password = readLine(cmd, "Password: ")
			}
			if confirm == "" {
				confirm = readLine(cmd, "Confirm password: ")
			}
			var s sessiondom.Session
			err = c.Guard.Do(cmd.Context(), "session.sign_up", func(ctx context.Context) error {
				s, err = c.Sessions.SignUp(ctx, email, password, confirm)
				return err
			})
			if err != nil {
				return err
			}
			printSession(a, s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; clears the cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Sessions.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.containerFor(cmd.Context())
			if err != nil {
				return err
			}
			printSession(a, c.Sessions.Current())
			return nil
		},
	}
}

func printSession(a *app, s sessiondom.Session) {
	if !s.IsLoggedIn {
		fmt.Fprintln(a.out, "not signed in")
		return
	}
	fmt.Fprintf(a.out, "%s (%s) role=%s\n", s.Email, s.UserID, s.Role)
}

func readLine(cmd *cobra.Command, prompt string) string {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
