package commands

import (
	"github.com/mosaicnetworks/eddy/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for Eddy
var RootCmd = &cobra.Command{
	Use:              "eddy",
	Short:            "eddy workload node",
	TraverseChildren: true,
}
