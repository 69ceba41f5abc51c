package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aquaticgg/krepo/cmd/admin/config/configkey"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiURLVar string
var usernameVar string
var secretVar string
var permissionsVar []string

func init() {
	Remote.PersistentFlags().StringVarP(&apiURLVar, "url", "U", "", "The server URL, overrides krepo.api.url")
	Remote.PersistentFlags().StringVarP(&usernameVar, "user", "u", "", "Authenticate with basic credentials as this user instead of the saved login")
	Remote.PersistentFlags().StringVarP(&secretVar, "secret", "s", "", "The password or deploy token for --user")
	_ = viper.BindPFlag(configkey.KrepoAPIURL, Remote.PersistentFlags().Lookup("url"))

	Remote.AddCommand(login, logout, push, repositories, tokens)

	tokens.AddCommand(listTokens, createToken, deleteToken)
	createToken.Flags().StringSliceVarP(&permissionsVar, "permissions", "p", []string{models.PermissionRead}, "Comma separated permissions, READ and/or WRITE")
}

var Remote = &cobra.Command{
	Use:   "remote",
	Short: "Work with a running server over HTTP",
}

// LoginInfo is the saved session of "remote login".
type LoginInfo struct {
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func loginFile() string {
	return viper.GetString(configkey.LoginFile)
}

func readLoginInfo() (*LoginInfo, error) {
	bytes, err := os.ReadFile(loginFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("not logged in, run: krepo-admin remote login")
		}
		return nil, err
	}

	var info LoginInfo
	if err := json.Unmarshal(bytes, &info); err != nil {
		return nil, fmt.Errorf("corrupt login file %s: %w", loginFile(), err)
	}
	if time.Now().After(info.ExpiresAt) {
		return nil, errors.New("session expired, run: krepo-admin remote login")
	}

	return &info, nil
}

func writeLoginInfo(info *LoginInfo) error {
	bytes, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(loginFile(), bytes, 0600)
}

// client authenticates with --user and --secret when given, else with the saved session.
func client() (*Client, error) {
	c := NewClient(viper.GetString(configkey.KrepoAPIURL))
	if usernameVar != "" {
		return c.WithBasic(usernameVar, secretVar), nil
	}

	info, err := readLoginInfo()
	if err != nil {
		return nil, err
	}
	return c.WithBearer(info.Token), nil
}

var login = &cobra.Command{
	Use:   "login",
	Short: "Log in with --user and --secret and save the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if usernameVar == "" || secretVar == "" {
			return errors.New("--user and --secret are required")
		}

		apiURL := viper.GetString(configkey.KrepoAPIURL)
		session, err := NewClient(apiURL).Login(usernameVar, secretVar)
		if err != nil {
			return err
		}

		info := &LoginInfo{URL: apiURL, Username: usernameVar, Token: session.Token, ExpiresAt: session.ExpiresAt}
		if err := writeLoginInfo(info); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s until %s\n", apiURL, usernameVar, session.ExpiresAt.Format(time.RFC3339))

		return nil
	},
}

var logout = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := readLoginInfo()
		if err != nil {
			return err
		}

		if err := NewClient(info.URL).WithBearer(info.Token).Logout(); err != nil {
			return err
		}
		return os.Remove(loginFile())
	},
}

var push = &cobra.Command{
	Use:   "push <repository> <path> <file>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}

		file, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil {
			return err
		}

		artifact, err := c.Push(args[0], args[1], file, stat.Size())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s/%s (%d bytes)\n", artifact.Repository, artifact.Path, artifact.Size)

		return nil
	},
}

var repositories = &cobra.Command{
	Use:   "repos",
	Short: "List the repositories visible to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}

		list, err := c.Repositories()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Name", "Visibility"})
		for _, r := range list {
			table.Append([]string{r.Name, string(r.Visibility)})
		}
		table.Render()

		return nil
	},
}

var tokens = &cobra.Command{
	Use:   "tokens",
	Short: "Manage your deploy tokens",
}

var listTokens = &cobra.Command{
	Use:   "list",
	Short: "List your deploy tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}

		list, err := c.ListTokens()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Name", "Permissions"})
		for _, t := range list {
			table.Append([]string{fmt.Sprint(t.ID), t.Name, strings.Join(t.Permissions, ",")})
		}
		table.Render()

		return nil
	},
}

var createToken = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a deploy token and print its secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}

		token, err := c.CreateToken(args[0], permissionsVar)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token %q (%s): %s\n", token.Name, strings.Join(token.Permissions, ","), token.Token)

		return nil
	},
}

var deleteToken = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your deploy tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid token id %q", args[0])
		}

		c, err := client()
		if err != nil {
			return err
		}

		return c.DeleteToken(uint(id))
	},
}
