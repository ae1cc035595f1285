package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/billspace/internal/core"
)

func userCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userCreateCmd(e))
	cmd.AddCommand(userDeactivateCmd(e))
	return cmd
}

func userCreateCmd(e *env) *cobra.Command {
	var draft core.RegisterDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if draft.DisplayName == "" {
				draft.DisplayName = draft.Username
			}
			user, err := e.core.Register(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Username, "username", "", "login name (4-16 of a-z, 0-9, _)")
	cmd.Flags().StringVar(&draft.Email, "email", "", "email address")
	cmd.Flags().StringVar(&draft.DisplayName, "display-name", "", "display name (defaults to the username)")
	cmd.Flags().StringVar(&draft.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userDeactivateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate USER_ID",
		Short: "Retire a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.core.DeactivateUser(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to deactivate user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s deactivated\n", args[0])
			return nil
		},
	}
}
