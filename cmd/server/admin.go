package main

import (
	"fmt"

	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/identity"
	"github.com/UkralStul/blog-service/internal/notify"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const (
	emailFlag    = "email"
	passwordFlag = "password"
	usernameFlag = "username"
	commentFlag  = "comment"
)

var superuserFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "Email of the new superuser (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Password; empty creates an account without a usable password",
	},
	usernameFlag: &cobraflags.StringFlag{
		Name:  usernameFlag,
		Value: "",
		Usage: "Optional username",
	},
}

var moderateFlags = map[string]cobraflags.Flag{
	commentFlag: &cobraflags.StringFlag{
		Name:  commentFlag,
		Value: "",
		Usage: "ID of the comment to moderate (required)",
	},
}

func newCreateSuperuserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			manager := identity.NewManager(a.store, a.log)
			user, err := manager.CreateSuperuser(cmd.Context(),
				superuserFlags[emailFlag].GetString(),
				superuserFlags[passwordFlag].GetString(),
				identity.Fields{Username: superuserFlags[usernameFlag].GetString()},
			)
			if err != nil {
				return fmt.Errorf("failed to create superuser: %w", err)
			}
			printf(cmd.OutOrStdout(), "Superuser %s created (id %s)\n", user.Email, user.ID)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, superuserFlags)
	return cmd
}

func newModerateCommand() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Hide or restore a comment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := moderateFlags[commentFlag].GetString()
			if id == "" {
				return fmt.Errorf("--%s is required", commentFlag)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			// Письма здесь не отправляются
			svc := blog.NewService(a.store, notify.NewLogSender(a.log), a.cfg.Mail.From, a.log)
			comment, err := svc.ModerateComment(cmd.Context(), id, active)
			if err != nil {
				return fmt.Errorf("failed to moderate comment: %w", err)
			}
			printf(cmd.OutOrStdout(), "Comment %s active=%t\n", comment.ID, comment.Active)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, moderateFlags)
	cmd.Flags().BoolVar(&active, "active", false, "Make the comment visible")
	return cmd
}
