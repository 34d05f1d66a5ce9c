package main

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/showcase/internal/cli/api"
	"github.com/zfogg/showcase/internal/cli/config"
	"github.com/zfogg/showcase/internal/cli/prompter"
)

var (
	loginEmail string
	loginCode  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := prompter.New()
		email := loginEmail
		if email == "" {
			var err error
			if email, err = p.String("Email: "); err != nil {
				return err
			}
		}
		password, err := p.Password("Password: ")
		if err != nil {
			return err
		}

		resp, err := client.Login(cmd.Context(), email, password, loginCode)
		if api.NeedsTwoFactorCode(err) && loginCode == "" {
			code, perr := p.String("Authenticator code: ")
			if perr != nil {
				return perr
			}
			resp, err = client.Login(cmd.Context(), email, password, code)
		}
		if err != nil {
			return err
		}
		err = config.SaveCredentials(&config.Credentials{
			Token:     resp.Token,
			ExpiresAt: resp.ExpiresAt,
			UserID:    resp.User.ID,
			Username:  resp.User.Username,
			Email:     resp.User.Email,
		})
		if err != nil {
			return err
		}
		printer.Success("Logged in as @%s", resp.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DeleteCredentials(); err != nil {
			return err
		}
		printer.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in account",
	PreRunE: requireLogin,
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		if printer.JSON() {
			return printer.Value(u)
		}
		printer.Info("@%s (%s)", u.Username, u.DisplayName)
		printer.Info("%d followers, %d following", u.FollowerCount, u.FollowingCount)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "authenticator code, for accounts with two-factor sign-in")
}
