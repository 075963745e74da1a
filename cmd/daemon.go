package cmd

import (
	pductl "github.com/OpenCHAMI/pductl/internal"
	"github.com/OpenCHAMI/pductl/pkg/daemon"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The `daemon` command launches a long-running server that exposes outlet
// queries and control as HTTP endpoints.
var daemonCmd = &cobra.Command{
	Use: "daemon",
	Example: `  // basic launch
  pductl daemon
  // listen on all interfaces with per-device communities
  MASTER_KEY=... pductl daemon -e :8161 -f secrets.json`,
	Short: "Launch a long-running web server, e.g. for container use",
	Long:  "Serves GET/PUT /pdus/{host}/outlets/{outlet} and POST /pdus/{host}/outlets/{outlet}/cycle.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := pductl.ControllerConfig()
		store, err := communityStore(cfg.Communities)
		if err != nil {
			return err
		}
		server := &daemon.Server{
			Controller: pdu.NewController(cfg),
			Journal:    journal(),
			CycleDelay: viper.GetDuration("cycle.delay"),
		}
		server.Communities = func(host string) (pdu.Communities, error) {
			return pdu.LoadCommunities(store, host, cfg.Communities)
		}

		return daemon.RunServer(cmd.Context(), viper.GetString("daemon.endpoint"), server)
	},
}

func init() {
	daemonCmd.Flags().StringP("endpoint", "e", "localhost:8161", "Set the address for the daemon to listen on")
	bindFlag("daemon.endpoint", daemonCmd.Flags().Lookup("endpoint"))
	rootCmd.AddCommand(daemonCmd)
}
