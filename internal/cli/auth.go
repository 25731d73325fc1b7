package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"sheetsync/api/internal/client"
)

func newLoginCommand(o *options) *cobra.Command {
	var email, password string
	var signup bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long:  "Sign in to sheetd and save the server, email and access token to ~/.sheetctl/config.yaml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				email = o.cfg.Email
			}
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				pw, err := o.readPassword("Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			remote := client.NewRemote(o.cfg.Server, "")
			if signup {
				if err := remote.SignUp(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("sign up: %w", err)
				}
			}
			session, err := remote.SignIn(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}

			err = SaveConfig(o.v, map[string]string{
				"server": o.cfg.Server,
				"email":  session.Email,
				"token":  session.Token,
			})
			if err != nil {
				return err
			}
			o.out.theme.Accent().Fprintf(o.stdout, "Logged in as %s\n", session.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	cmd.Flags().BoolVar(&signup, "signup", false, "Create the account before signing in")
	return cmd
}

func newLogoutCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the access token and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireLogin(); err != nil {
				return err
			}
			err := o.remote().SignOut(cmd.Context())
			var apiErr *client.APIError
			if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
				return fmt.Errorf("sign out: %w", err)
			}
			if err := SaveConfig(o.v, map[string]string{"token": ""}); err != nil {
				return err
			}
			fmt.Fprintln(o.stdout, "Logged out")
			return nil
		},
	}
}

type whoAmIView struct {
	Server        string `json:"server" yaml:"server"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty"`
	UserID        string `json:"userId,omitempty" yaml:"userId,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

func newWhoAmICommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := whoAmIView{Server: o.cfg.Server}
			if o.cfg.Token != "" {
				s, err := o.remote().Session(cmd.Context())
				if err != nil {
					return err
				}
				view.Authenticated = s.Authenticated
				view.Email = s.Email
				view.UserID = s.UserID
				if s.ExpiresAt > 0 {
					view.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC().Format(time.RFC3339)
				}
			}
			if o.out.format != FormatTable {
				return o.out.value(view)
			}
			if !view.Authenticated {
				fmt.Fprintf(o.stdout, "Not logged in to %s\n", view.Server)
				return nil
			}
			fmt.Fprintf(o.stdout, "%s on %s (expires %s)\n", view.Email, view.Server, view.ExpiresAt)
			return nil
		},
	}
}

func (o *options) readPassword(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:  o.stdin,
		Stdout: o.stdout,
		Stderr: o.stderr,
	})
	if err != nil {
		return "", fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	pw, err := rl.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
