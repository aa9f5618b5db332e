package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"moodwave/core/auth"
	"moodwave/db"
	"moodwave/model"
	"moodwave/repository"

	"github.com/spf13/cobra"
)

var (
	superuserEmail       string
	superuserPassword    string
	superuserDisplayName string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a staff account with superuser rights",
	Long: `Create a staff account with superuser rights. The password is taken from
--password or, when that is empty, from MOODWAVE_SUPERUSER_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := superuserPassword
		if password == "" {
			password = os.Getenv("MOODWAVE_SUPERUSER_PASSWORD")
		}
		if err := validateSuperuser(superuserEmail, password); err != nil {
			return err
		}

		gdb, err := db.Connect(cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		if err := db.Migrate(gdb); err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user := &model.User{
			Email:       superuserEmail,
			Password:    hash,
			DisplayName: superuserDisplayName,
			IsActive:    true,
			IsStaff:     true,
			IsSuperuser: true,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repository.NewUserRepository(gdb).Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return fmt.Errorf("a user with email %s already exists", user.Email)
			}
			return err
		}

		fmt.Printf("Superuser %s created (id %d).\n", user.Email, user.ID)
		return nil
	},
}

func validateSuperuser(email, password string) error {
	if email == "" {
		return errors.New("--email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	if password == "" {
		return errors.New("a password is required (--password or MOODWAVE_SUPERUSER_PASSWORD)")
	}
	if errs := auth.ValidatePassword(password); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List user accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Connect(cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		users, err := repository.NewUserRepository(gdb).List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tDISPLAY NAME\tFLAGS\tJOINED\tLAST LOGIN")
		for _, u := range users {
			lastLogin := "-"
			if u.LastLogin != nil {
				lastLogin = u.LastLogin.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				u.ID, u.Email, u.DisplayName, userFlags(u),
				u.DateJoined.Format(time.RFC3339), lastLogin)
		}
		return w.Flush()
	},
}

func userFlags(u *model.User) string {
	var flags []string
	if !u.IsActive {
		flags = append(flags, "inactive")
	}
	if u.IsStaff {
		flags = append(flags, "staff")
	}
	if u.IsSuperuser {
		flags = append(flags, "superuser")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)
	rootCmd.AddCommand(usersCmd)

	createSuperuserCmd.Flags().StringVarP(&superuserEmail, "email", "e", "", "email address (login identity)")
	createSuperuserCmd.Flags().StringVarP(&superuserPassword, "password", "p", "", "password")
	createSuperuserCmd.Flags().StringVar(&superuserDisplayName, "display-name", "", "optional display name")
}
