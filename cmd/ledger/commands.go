package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/erp-ledger-core/internal/config"
	"github.com/sheikh-saqib/erp-ledger-core/internal/events/kafka"
	"github.com/sheikh-saqib/erp-ledger-core/internal/ledger"
	"github.com/sheikh-saqib/erp-ledger-core/internal/logging"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage"
)

// app is what every subcommand runs against. It is built in the root
// PersistentPreRunE and closed by execute once the command returns.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     storage.LedgerStore
	publisher *kafka.Publisher
	ledger    *ledger.Ledger
}

func (a *app) open(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		_ = logger.Sync()
		return err
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = kafka.NewPublisher(cfg.Kafka.Brokers)
		opts = append(opts, ledger.WithPublisher(a.publisher, cfg.Kafka.Topic))
	}

	a.cfg, a.logger, a.store = cfg, logger, store
	a.ledger = ledger.NewLedger(store, opts...)
	logger.Debug("ledger opened", zap.String("store", cfg.Store.Kind))
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
		a.publisher = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
		a.logger = nil
	}
	return errors.Join(errs...)
}

// execute runs the CLI with args, writing command output to out.
func execute(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCommand(a *app) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Branch ledger: account registry and document posting",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to ledger.yaml")

	root.AddCommand(
		newMigrateCommand(a),
		newAccountsCommand(a),
		newBalanceCommand(a),
		newCreateAccountCommand(a),
	)
	return root
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", a.cfg.Store.Kind)
			return nil
		},
	}
}

func newAccountsCommand(a *app) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List a branch's accounts ordered by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.ledger.Accounts(cmd.Context(), branch)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tCLASS\tACTIVE\tBALANCE")
			for _, acct := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", acct.Code, acct.Name, acct.Class, acct.Active, acct.Balance.StringFixed(2))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch id")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}

func newBalanceCommand(a *app) *cobra.Command {
	var id, branch, code string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print one account's balance, by --id or by --branch and --code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				acct models.Account
				err  error
			)
			switch {
			case id != "":
				acct, err = a.ledger.Account(cmd.Context(), id)
			case branch != "" && code != "":
				acct, err = a.ledger.AccountByCode(cmd.Context(), branch, code)
			default:
				return errors.New("either --id or both --branch and --code are required")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", acct.Code, acct.Name, acct.Balance.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "account id")
	cmd.Flags().StringVar(&branch, "branch", "", "branch id")
	cmd.Flags().StringVar(&code, "code", "", "account code")
	return cmd
}

func newCreateAccountCommand(a *app) *cobra.Command {
	var branch, code, name, class string

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Add a ledger account with a zero balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := a.ledger.CreateAccount(cmd.Context(), branch, code, name, models.Class(class))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), acct.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch id")
	cmd.Flags().StringVar(&code, "code", "", "account code")
	cmd.Flags().StringVar(&name, "name", "", "account name")
	cmd.Flags().StringVar(&class, "class", string(models.ClassCOA), "coa, bank or actor")
	for _, f := range []string{"branch", "code", "name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
