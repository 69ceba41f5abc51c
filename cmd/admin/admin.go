package admin

import (
	"fmt"
	"os"
	"sort"

	adminconfig "github.com/aquaticgg/krepo/cmd/admin/config"
	"github.com/aquaticgg/krepo/cmd/admin/remote"
	"github.com/aquaticgg/krepo/cmd/store"
	"github.com/aquaticgg/krepo/config"
	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	for k, v := range adminconfig.DefaultValues {
		viper.SetDefault(k, v)
	}

	Admin.AddCommand(store.Store)
	Admin.AddCommand(info)
	Admin.AddCommand(users)
	Admin.AddCommand(repos)
	Admin.AddCommand(tokens)
	Admin.AddCommand(remote.Remote)
}

var Admin = &cobra.Command{
	Use:              "krepo-admin",
	Short:            "Operator tool for a KRepo installation",
	TraverseChildren: true,
	SilenceUsage:     true,
}

var info = &cobra.Command{
	Use:   "info",
	Short: "Show default and effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Value"})

		var defaultValueKeys []string
		for k := range config.DefaultValues {
			defaultValueKeys = append(defaultValueKeys, k)
		}

		sort.Strings(defaultValueKeys)

		logrus.Infof("Defaults were: ")
		for _, k := range defaultValueKeys {
			table.Append([]string{k, fmt.Sprintf("%+v", config.DefaultValues[k])})
		}
		table.Render()

		table = tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Value"})

		logrus.Infof("Actual values: ")

		allKeys := viper.AllKeys()
		sort.Strings(allKeys)

		for _, k := range allKeys {
			table.Append([]string{k, fmt.Sprintf("%+v", masked(k, viper.Get(k)))})
		}
		table.Render()
	},
}

var secretKeys = map[string]bool{
	configkey.DatabasePassword:       true,
	configkey.S3SecretKey:            true,
	configkey.JWTSecret:              true,
	configkey.BootstrapAdminPassword: true,
}

func masked(key string, value interface{}) interface{} {
	if secretKeys[key] && fmt.Sprint(value) != "" {
		return "********"
	}
	return value
}
