package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/OpenCHAMI/pductl/internal/cache"
	"github.com/OpenCHAMI/pductl/internal/cache/sqlite"
	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The `history` command shows the outlet events recorded by previous
// `pdu` commands and the daemon.
var historyCmd = &cobra.Command{
	Use:   "history [host]",
	Args:  cobra.MaximumNArgs(1),
	Short: "Show recorded outlet events",
	Example: `  pductl history
  pductl history 10.254.1.20 -F json
  pductl history clear 10.254.1.20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := ""
		if len(args) > 0 {
			host = args[0]
		}
		events, err := sqlite.GetOutletEvents(viper.GetString("journal.path"), host)
		if err != nil {
			return err
		}
		if outputFormat != format.FORMAT_LIST {
			return format.Write(cmd.OutOrStdout(), events, outputFormat)
		}
		writeEvents(cmd.OutOrStdout(), events, time.Now())
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear [host]...",
	Short: "Remove recorded outlet events, for all devices unless hosts are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := sqlite.DeleteOutletEvents(viper.GetString("journal.path"), args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d events\n", n)
		return nil
	},
}

func writeEvents(w io.Writer, events []cache.OutletEvent, now time.Time) {
	for _, e := range events {
		line := fmt.Sprintf("%s\t%s:%d outlet %d\t%s\t%s",
			humanize.RelTime(e.Timestamp, now, "ago", "from now"), e.Host, e.Port, e.Outlet, e.Action, e.State)
		if e.Error != "" {
			line += "\t" + e.Error
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
