package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRole(cmd, args[0], (*service.UserService).PromoteByEmail)
	},
}

var demoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Revoke the admin role from an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRole(cmd, args[0], (*service.UserService).DemoteByEmail)
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd, demoteCmd)
}

type roleChange func(*service.UserService, context.Context, string) (*domain.User, error)

func changeRole(cmd *cobra.Command, email string, change roleChange) error {
	pool := pg.PoolHandle()
	users := service.NewUserService(service.UserDependencies{
		UserRepo:      repository.NewUserRepository(pool),
		ComplaintRepo: repository.NewComplaintRepository(pool),
		Logger:        logger,
		BcryptCost:    cfg.Auth.BcryptCost,
	})

	user, err := change(users, cmd.Context(), email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
	return nil
}
