package admin

import (
	"fmt"
	"io"
	"strings"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var userPassword string
var userAdmin bool
var userRoles []string

func init() {
	users.AddCommand(listUsers, createUser, deleteUser, promoteUser, demoteUser)

	createUser.Flags().StringVarP(&userPassword, "password", "p", "", "The password of the new account")
	createUser.Flags().BoolVarP(&userAdmin, "admin", "a", false, "Grant the ADMIN role")
	createUser.Flags().StringSliceVarP(&userRoles, "roles", "r", nil, "Comma separated roles, defaults to USER")
	_ = createUser.MarkFlagRequired("password")
}

var users = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
}

func printAccounts(w io.Writer, accounts ...models.Account) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Username", "Roles", "Created"})
	for _, a := range accounts {
		table.Append([]string{
			fmt.Sprint(a.ID),
			a.Username,
			strings.Join(a.Roles, ","),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

var listUsers = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		accounts, err := s.accounts.List(cmd.Context())
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), accounts...)

		return nil
	},
}

var createUser = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		var roles []string
		for _, r := range userRoles {
			roles = append(roles, strings.ToUpper(strings.TrimSpace(r)))
		}
		if len(roles) == 0 {
			roles = []string{models.RoleUser}
		}
		if userAdmin {
			roles = append(roles, models.RoleAdmin)
		}

		acct, err := s.accounts.Create(cmd.Context(), args[0], userPassword, roles)
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), *acct)

		return nil
	},
}

var deleteUser = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an account and its deploy tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		if err := s.accounts.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

		return nil
	},
}

var promoteUser = &cobra.Command{
	Use:   "promote <username>",
	Short: "Grant the ADMIN role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		acct, err := s.accounts.Promote(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), *acct)

		return nil
	},
}

var demoteUser = &cobra.Command{
	Use:   "demote <username>",
	Short: "Remove the ADMIN role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		acct, err := s.accounts.Demote(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), *acct)

		return nil
	},
}
