package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/ledger"
)

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "List and manage accounts",
	}
	cmd.AddCommand(
		newAccountsListCmd(a),
		newAccountsCreateCmd(a),
		newAccountsEditCmd(a),
		newAccountsCorrectCmd(a),
		newAccountsDeleteCmd(a),
	)
	return cmd
}

func newAccountsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			accounts := svc.Book().Accounts()
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), accounts)
			}
			return printAccounts(cmd.OutOrStdout(), accounts)
		},
	}
}

func newAccountsCreateCmd(a *app) *cobra.Command {
	var (
		in      ledger.NewAccount
		accType string
		balance string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with an opening balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Type = core.AccountType(accType)
			if balance != "" {
				d, err := core.ParseSignedAmount(balance)
				if err != nil {
					return core.Invalid("balance", err)
				}
				in.Balance = d
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			acc, err := svc.CreateAccount(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), acc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", acc.Name, acc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Account name (required).")
	cmd.Flags().StringVar(&in.Bank, "bank", "", "Bank name.")
	cmd.Flags().StringVar(&in.Number, "number", "", "Account number.")
	cmd.Flags().StringVar(&accType, "type", string(core.Other), "One of "+accountTypeList()+".")
	cmd.Flags().StringVar(&balance, "balance", "", "Opening balance, e.g. 1200,50 or -30.")
	cmd.Flags().StringVar(&in.Color, "color", "", "Display color as #rrggbb.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAccountsEditCmd(a *app) *cobra.Command {
	var name, bank, number, accType, color string
	cmd := &cobra.Command{
		Use:   "edit <account-id>",
		Short: "Change descriptive fields of an account; the balance is untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ledger.AccountPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("bank") {
				patch.Bank = &bank
			}
			if flags.Changed("number") {
				patch.Number = &number
			}
			if flags.Changed("type") {
				t := core.AccountType(accType)
				patch.Type = &t
			}
			if flags.Changed("color") {
				patch.Color = &color
			}
			if patch == (ledger.AccountPatch{}) {
				return fmt.Errorf("%w: nothing to change, pass at least one field flag", errUsage)
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			acc, err := svc.EditAccountMetadata(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), acc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s\n", acc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name.")
	cmd.Flags().StringVar(&bank, "bank", "", "New bank.")
	cmd.Flags().StringVar(&number, "number", "", "New account number.")
	cmd.Flags().StringVar(&accType, "type", "", "New account type: "+accountTypeList()+".")
	cmd.Flags().StringVar(&color, "color", "", "New display color.")
	return cmd
}

func newAccountsCorrectCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "correct <account-id> <balance>",
		Short: "Overwrite an account balance outside the transaction history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := core.ParseSignedAmount(args[1])
			if err != nil {
				return core.Invalid("balance", err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			acc, err := svc.CorrectBalance(cmd.Context(), args[0], balance, reason)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), acc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance of %s set to %s\n", acc.Name, core.FormatAmount(acc.Balance))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the balance is being corrected.")
	return cmd
}

func newAccountsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account and reverse every transaction that touches it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
			return nil
		},
	}
}

func accountTypeList() string {
	names := make([]string, 0, len(core.AccountTypes()))
	for _, t := range core.AccountTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
