package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/database"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/internal/session"
	"github.com/cardledger/pkg/keygen"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newUserCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage ledger users",
	}
	cmd.AddCommand(newUserAddCmd(load))
	return cmd
}

func newUserAddCmd(load configLoader) *cobra.Command {
	var (
		username string
		password string
		generate bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with the default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			switch {
			case password != "":
			case generate:
				generated, err := keygen.RandomString(16)
				if err != nil {
					return err
				}
				password = generated
				fmt.Fprintf(out, "Generated password: %s\n", password)
			default:
				fmt.Fprint(out, "Enter password: ")
				entered, err := readPassword(cmd.InOrStdin())
				fmt.Fprintln(out)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = entered
			}

			db, err := openDB(load)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			// registration never touches the session store
			auth := service.NewAuthService(repository.NewUserRepository(db), nil, session.Policy{}, config.JWTConfig{})
			user, err := auth.Register(&service.RegisterRequest{Username: username, Password: password})
			if err != nil {
				var ve *service.ValidationError
				switch {
				case errors.As(err, &ve):
					return errors.New(ve.Message)
				case errors.Is(err, service.ErrUsernameTaken):
					return fmt.Errorf("user %s already exists", username)
				}
				return err
			}

			fmt.Fprintf(out, "User %s created successfully with ID %d\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name (3-20 characters)")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted for when omitted")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
