package admin

import (
	"fmt"
	"io"
	"strings"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tokenPermissions []string

func init() {
	tokens.AddCommand(listTokens, generateToken, resetToken)

	generateToken.Flags().StringSliceVarP(&tokenPermissions, "permissions", "p", []string{models.PermissionRead}, "Comma separated permissions, READ and/or WRITE")
}

var tokens = &cobra.Command{
	Use:   "tokens",
	Short: "Manage deploy tokens",
}

func printTokens(w io.Writer, list []models.DeployToken) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Permissions", "Created"})
	for _, t := range list {
		table.Append([]string{fmt.Sprint(t.ID), t.Name, strings.Join(t.Permissions, ","), t.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	table.Render()
}

var listTokens = &cobra.Command{
	Use:   "list <username>",
	Short: "List the deploy tokens of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		list, err := s.tokens.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printTokens(cmd.OutOrStdout(), list)

		return nil
	},
}

var generateToken = &cobra.Command{
	Use:   "generate <username> <name>",
	Short: "Create a deploy token and print its secret",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		token, secret, err := s.tokens.Create(cmd.Context(), args[0], args[1], tokenPermissions)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token %q (%s): %s\n", token.Name, strings.Join(token.Permissions, ","), secret)
		fmt.Fprintln(cmd.OutOrStdout(), "Store it now, it cannot be shown again.")

		return nil
	},
}

var resetToken = &cobra.Command{
	Use:   "reset <username> <name>",
	Short: "Replace the secret of a deploy token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		secret, err := s.tokens.Reset(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token %q: %s\n", args[1], secret)
		fmt.Fprintln(cmd.OutOrStdout(), "Store it now, it cannot be shown again.")

		return nil
	},
}
