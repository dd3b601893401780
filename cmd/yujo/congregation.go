package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/infrastructure/auth"
	"github.com/joacominatel/yujo/internal/infrastructure/config"
	"github.com/joacominatel/yujo/internal/infrastructure/database"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
	"github.com/joacominatel/yujo/internal/infrastructure/postgres"
)

// readPassword prompts on stderr. swapped in tests.
var readPassword = func(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword asks twice and requires both answers to match.
func promptPassword() (string, error) {
	first, err := readPassword("Panel password: ")
	if err != nil {
		return "", err
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func newCongregationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "congregation",
		Short: "Manage congregations",
	}
	cmd.AddCommand(newCongregationCreateCmd(), newCongregationSetPasswordCmd())
	return cmd
}

func newCongregationCreateCmd() *cobra.Command {
	var input application.CreateCongregationInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a congregation and its panel password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				password, err := promptPassword()
				if err != nil {
					return err
				}
				input.Password = password
			}

			return withStore(cmd.Context(), func(ctx context.Context, s *store) error {
				uc := application.NewCongregationUseCase(s.congregations, s.credentials, s.uow, auth.NewBcryptHasher(bcryptCost), s.logger)
				out, err := uc.Create(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", out.Slug, out.CongregationID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.Slug, "slug", "", "url identifier, 5 to 64 letters, digits, hyphens or underscores")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Address, "address", "", "street address")
	cmd.Flags().StringVar(&input.Password, "password", "", "panel password, prompted when omitted")
	_ = cmd.MarkFlagRequired("slug")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCongregationSetPasswordCmd() *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Overwrite a congregation's panel password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword()
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(ctx context.Context, s *store) error {
				hasher := auth.NewBcryptHasher(bcryptCost)
				congregation, err := application.NewCongregationUseCase(s.congregations, s.credentials, s.uow, hasher, s.logger).
					Get(ctx, slug)
				if err != nil {
					return err
				}

				// no sessions are issued from the cli
				panel := application.NewPanelAuthUseCase(s.congregations, s.credentials, hasher, nil, s.logger)
				if err := panel.SetPassword(ctx, congregation.ID(), password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", congregation.Slug())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "congregation slug")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

// store bundles the repositories the admin commands need.
type store struct {
	congregations *postgres.CongregationRepository
	credentials   *postgres.CredentialsRepository
	uow           *postgres.UnitOfWork
	logger        *logging.Logger
}

func withStore(ctx context.Context, fn func(ctx context.Context, s *store) error) error {
	logger := newLogger()

	dbConfig, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	conn, err := database.New(dbConfig, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	pool := conn.Pool()
	return fn(ctx, &store{
		congregations: postgres.NewCongregationRepository(pool),
		credentials:   postgres.NewCredentialsRepository(pool),
		uow:           postgres.NewUnitOfWork(pool),
		logger:        logger,
	})
}
