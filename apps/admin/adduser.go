package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update and reactivate the one owning the email. The password is prompted next.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !user.IsValidRole(role) {
				return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role " + role})
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(name, email, role, pwd)
			if err != nil {
				return err
			}
			cli.printf("user %d (%s, %s) saved\n", usr.ID, usr.Email, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "the user's full name")
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&role, "role", user.RoleAdmin, "one of admin, mentor, startup")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, role, pwd string) (user.User, error) {
	ctx := context.Background()
	now := time.Now().UTC()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	found := err == nil
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	if name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = email
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if found {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}
