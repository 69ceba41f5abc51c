package admin

import (
	"errors"
	"fmt"
	"io"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	repos.AddCommand(listRepos, setVisibility)
}

var repos = &cobra.Command{
	Use:   "repos",
	Short: "Manage repositories",
}

func printRepositories(w io.Writer, list []models.Repository) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Visibility", "Created"})
	for _, r := range list {
		table.Append([]string{r.Name, string(r.Visibility), r.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	table.Render()
}

var listRepos = &cobra.Command{
	Use:   "list",
	Short: "List every repository, hidden ones included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices()
		if err != nil {
			return err
		}

		list, err := s.repos.List(cmd.Context())
		if err != nil {
			return err
		}
		printRepositories(cmd.OutOrStdout(), list)

		return nil
	},
}

var setVisibility = &cobra.Command{
	Use:   "set-visibility <repository> <PUBLIC|PRIVATE|HIDDEN>",
	Short: "Change who can read and list a repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		visibility, err := models.ParseVisibility(args[1])
		if err != nil {
			return err
		}

		s, err := openServices()
		if err != nil {
			return err
		}

		if err := s.repos.SetVisibility(cmd.Context(), args[0], visibility); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("repository %q does not exist", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], visibility)

		return nil
	},
}
