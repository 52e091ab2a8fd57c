package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type accountView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Preferred bool   `json:"preferred"`
}

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"accounts"},
	Short:   "Manage local account contexts",
}

var accountListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		defer st.Close()

		accounts, err := st.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		preferred := st.PreferredAccount()

		views := make([]accountView, 0, len(accounts))
		for _, account := range accounts {
			views = append(views, accountView{ID: account.ID, Name: account.Name, Preferred: account.ID == preferred})
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, views)
		}
		if len(views) == 0 {
			_, err := fmt.Fprintln(out, "No accounts")
			return err
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			mark := ""
			if v.Preferred {
				mark = "*"
			}
			rows = append(rows, []string{mark, fmt.Sprintf("%d", v.ID), v.Name})
		}
		return writeTable(out, []string{"", "ID", "NAME"}, rows)
	},
}

var accountUseCmd = &cobra.Command{
	Use:   "use <account-id>",
	Short: "Prefer an account when duplicates from several accounts meet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid account id %q", args[0])
		}

		cfg := GetConfig()
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetPreferredAccount(cmd.Context(), id); err != nil {
			return err
		}

		contexts := contextStore(cfg)
		current, err := contexts.Load()
		if err != nil {
			return err
		}
		current.SetAccount(id, st.AccountName(id))
		if err := contexts.Save(current); err != nil {
			return err
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), accountView{ID: id, Name: current.AccountName, Preferred: true})
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", current.String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountUseCmd)
}
