package main

import (
	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/services"
	"fmt"

	"github.com/spf13/cobra"
)

// tokenCmd stands in for the auth collaborator during development.
func tokenCmd() *cobra.Command {
	var name, picture string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if len(config.JWTSecret) < 16 {
				return fmt.Errorf("JWT_SECRET must hold at least 16 characters")
			}
			service := services.NewAuthService(auth.NewTokens(config.JWTSecret, config.TokenDuration))
			token, err := service.IssueToken(domain.AuthUser{
				ID:          domain.UserID(args[0]),
				DisplayName: name,
				ProfilePic:  picture,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name, defaults to the user id")
	cmd.Flags().StringVar(&picture, "picture", "", "profile picture URL")
	return cmd
}
