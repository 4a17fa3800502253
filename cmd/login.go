package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/ui"
	"github.com/msalah0e/cloudcanvas/internal/vault"
)

func loginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for the backend",
		Long: `Store the access token issued by your identity provider.

  cloudcanvas login --token eyJhbGciOi...
  cloudcanvas login            # prompts for the token`,
		Run: func(cmd *cobra.Command, args []string) {
			if token == "" {
				fmt.Print("  Access token: ")
				reader := bufio.NewReader(os.Stdin)
				token, _ = reader.ReadString('\n')
				token = strings.TrimSpace(token)
			}
			if token == "" {
				ui.Bad.Println("  No token given")
				os.Exit(1)
			}

			user, err := loadSession().SignIn(token)
			if err != nil {
				ui.Bad.Printf("  Login failed: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Signed in as %s\n", ui.StatusIcon(true), displayName(user.Email, user.ID))
			if !user.ExpiresAt.IsZero() {
				fmt.Printf("  Token expires %s\n", ui.Subtle.Sprint(user.ExpiresAt.Local().Format("Jan 02 15:04")))
			}
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token (JWT)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Run: func(cmd *cobra.Command, args []string) {
			if err := loadSession().SignOut(); err != nil {
				ui.Bad.Printf("  Logout failed: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Signed out\n", ui.StatusIcon(true))
		},
	}
}

func whoamiCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Run: func(cmd *cobra.Command, args []string) {
			user, ok := loadSession().CurrentUser()
			if !ok {
				fmt.Println("  Not signed in.")
				fmt.Println("  Sign in: cloudcanvas login --token <token>")
				return
			}

			ui.Banner("session")
			fmt.Printf("  User:    %s\n", ui.Brand.Sprint(user.ID))
			if user.Email != "" {
				fmt.Printf("  Email:   %s\n", user.Email)
			}
			if user.Role != "" {
				fmt.Printf("  Role:    %s\n", user.Role)
			}
			if !user.ExpiresAt.IsZero() {
				fmt.Printf("  Expires: %s\n", user.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			tok, _ := loadSession().AccessToken(cmd.Context())
			fmt.Printf("  Token:   %s\n", ui.Subtle.Sprint(vault.Mask(tok)))

			if !remote {
				return
			}
			ctx, cancel := commandContext()
			defer cancel()
			var me struct {
				ID    string `json:"id"`
				Email string `json:"email"`
				Role  string `json:"role"`
			}
			if err := loadClient().Get(ctx, "/api/auth/me", &me); err != nil {
				ui.Bad.Printf("  %s Backend rejected the session: %v\n", ui.StatusIcon(false), err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Backend knows you as %s (%s)\n", ui.StatusIcon(true), displayName(me.Email, me.ID), me.Role)
		},
	}

	cmd.Flags().BoolVar(&remote, "check", false, "Verify the token against the backend")
	return cmd
}

func displayName(email, id string) string {
	if email != "" {
		return email
	}
	return id
}
