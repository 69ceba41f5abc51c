package main

import (
	"fmt"
	"os"

	"github.com/aquaticgg/krepo/cmd/admin"
	"github.com/aquaticgg/krepo/config"
	"github.com/spf13/cobra"
)

func init() {
	cobra.OnInitialize(config.LoadConfig, config.ConfigureLogging)
}

func main() {
	if err := admin.Admin.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
