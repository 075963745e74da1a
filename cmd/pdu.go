package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	pductl "github.com/OpenCHAMI/pductl/internal"
	"github.com/OpenCHAMI/pductl/internal/cache"
	"github.com/OpenCHAMI/pductl/internal/cache/sqlite"
	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/OpenCHAMI/pductl/internal/util"
	"github.com/OpenCHAMI/pductl/pkg/client"
	"github.com/OpenCHAMI/pductl/pkg/idmap"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/cznic/mathutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// upper bound on parallel requests to one device when --concurrency is unset
const maxDeviceConcurrency = 24

var pduCmd = &cobra.Command{
	Use:   "pdu",
	Short: "Query and switch PDU outlets",
	Long: "Query and switch the outlets of a CyberPower ePDU over SNMPv1.\n" +
		"Outlets are given as a list of indices and ranges, e.g. 1,3,5-8.",
	Example: `  // query outlets 1 to 8
  pductl pdu status 10.254.1.20 1-8
  // switch outlet 3 on, using communities from a secret store
  pductl pdu on 10.254.1.20 3 -f secrets.json
  // power cycle two outlets with a 5 second pause, through a daemon
  pductl pdu cycle 10.254.1.20 4,6 --delay 5s --daemon-url http://localhost:8161
  // name outlets after their xname
  pductl pdu status 10.254.1.20 1-24 --xname x3000m0p0 -F yaml
  pductl pdu status 10.254.1.20 1-24 --xname-map @xnames.yaml`,
}

var pduStatusCmd = &cobra.Command{
	Use:   "status <host> <outlets>",
	Args:  cobra.ExactArgs(2),
	Short: "Show the power state of outlets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOutlets(cmd, args, cache.ActionGet)
	},
}

var pduOnCmd = &cobra.Command{
	Use:   "on <host> <outlets>",
	Args:  cobra.ExactArgs(2),
	Short: "Switch outlets on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOutlets(cmd, args, cache.ActionOn)
	},
}

var pduOffCmd = &cobra.Command{
	Use:   "off <host> <outlets>",
	Args:  cobra.ExactArgs(2),
	Short: "Switch outlets off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOutlets(cmd, args, cache.ActionOff)
	},
}

var pduCycleCmd = &cobra.Command{
	Use:   "cycle <host> <outlets>",
	Args:  cobra.ExactArgs(2),
	Short: "Switch outlets off and back on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOutlets(cmd, args, cache.ActionCycle)
	},
}

func runOutlets(cmd *cobra.Command, args []string, action string) error {
	addr, err := pdu.NewAddress(args[0], viper.GetInt("port"))
	if err != nil {
		return err
	}
	outlets, err := pdu.ParseOutletList(args[1])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	// Set the minimum/maximum number of concurrent requests
	concurrency := viper.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = mathutil.Clamp(len(outlets), 1, maxDeviceConcurrency)
	}

	var results []pdu.OutletResult
	if url := viper.GetString("daemon.url"); url != "" {
		log.Debug().Str("daemon", url).Msg("forwarding outlet requests")
		c := client.New(url, daemonClientTimeout())
		results = pdu.RunBatch(cmd.Context(), concurrency, outlets, remoteAction(c, addr, action))
	} else {
		ctl, err := newController(addr.Host)
		if err != nil {
			return err
		}
		results = localAction(cmd.Context(), ctl, addr, outlets, action, concurrency)
		recordResults(addr, action, results)
	}

	mapper, err := idmap.PickIDMapper(viper.GetString("xname"), viper.GetString("xname-map"), format.FORMAT_JSON)
	if err != nil {
		return err
	}
	inventory, err := pdu.NewInventory(addr, mapper.GetMappedID(addr.Host), results)
	if err != nil {
		return err
	}
	if err := writeInventory(cmd.OutOrStdout(), inventory, outputFormat); err != nil {
		return err
	}

	var errs []error
	for _, o := range inventory.Failed() {
		errs = append(errs, fmt.Errorf("outlet %d: %s", o.Index, o.Error))
	}
	if util.HasErrors(errs) {
		return fmt.Errorf("%d of %d outlets failed:\n%w", len(errs), len(results), util.FormatErrorList(errs))
	}
	return nil
}

func localAction(ctx context.Context, ctl *pdu.Controller, addr pdu.Address, outlets []pdu.OutletIndex, action string, concurrency int) []pdu.OutletResult {
	switch action {
	case cache.ActionOn:
		return ctl.SetOutlets(ctx, addr, outlets, true, concurrency)
	case cache.ActionOff:
		return ctl.SetOutlets(ctx, addr, outlets, false, concurrency)
	case cache.ActionCycle:
		return ctl.CycleOutlets(ctx, addr, outlets, viper.GetDuration("cycle.delay"), concurrency)
	default:
		return ctl.QueryOutlets(ctx, addr, outlets, concurrency)
	}
}

func remoteAction(c *client.Client, addr pdu.Address, action string) func(context.Context, pdu.OutletIndex) pdu.OutletResult {
	port := int(addr.Port)
	return func(ctx context.Context, outlet pdu.OutletIndex) pdu.OutletResult {
		result := pdu.OutletResult{Outlet: outlet}
		switch action {
		case cache.ActionCycle:
			result.Err = c.Cycle(ctx, addr.Host, port, int(outlet), viper.GetDuration("cycle.delay"))
			result.Status = pdu.StatusOn
		case cache.ActionOn, cache.ActionOff:
			state, err := c.PowerSet(ctx, addr.Host, port, int(outlet), action == cache.ActionOn)
			if err != nil {
				result.Err = err
				break
			}
			result.Status = onStatus(state.On)
		default:
			state, err := c.PowerGet(ctx, addr.Host, port, int(outlet))
			if err != nil {
				result.Err = err
				break
			}
			result.Status = onStatus(state.On)
		}
		return result
	}
}

func onStatus(on bool) pdu.OutletStatus {
	if on {
		return pdu.StatusOn
	}
	return pdu.StatusOff
}

// daemonClientTimeout covers a cycle plus the worst case of both SETs
// running through all of their retries.
func daemonClientTimeout() time.Duration {
	cfg := pductl.ControllerConfig()
	return viper.GetDuration("cycle.delay") + 2*time.Duration(cfg.Retries+1)*cfg.WriteTimeout + 10*time.Second
}

// newController builds a controller for host with the communities resolved
// from communityStore.
func newController(host string) (*pdu.Controller, error) {
	cfg := pductl.ControllerConfig()
	store, err := communityStore(cfg.Communities)
	if err != nil {
		return nil, err
	}
	communities, err := pdu.LoadCommunities(store, host, cfg.Communities)
	if err != nil {
		return nil, err
	}
	return pdu.NewController(cfg).WithCommunities(communities), nil
}

// communityStore opens the configured secret store, or falls back to the
// communities given as flags.
func communityStore(fallback pdu.Communities) (secrets.SecretStore, error) {
	if path := viper.GetString("secrets.file"); path != "" {
		return secrets.OpenStore(path)
	}
	return secrets.NewStaticStore(fallback.Read, fallback.Write), nil
}

func journal() cache.Journal {
	if viper.GetBool("journal.disabled") {
		return cache.Discard{}
	}
	return sqlite.Journal{Path: viper.GetString("journal.path")}
}

func recordResults(addr pdu.Address, action string, results []pdu.OutletResult) {
	now := time.Now().UTC()
	events := make([]cache.OutletEvent, 0, len(results))
	for _, r := range results {
		event := cache.OutletEvent{
			Host:      addr.Host,
			Port:      int(addr.Port),
			Outlet:    int(r.Outlet),
			Action:    action,
			State:     r.Status.String(),
			Timestamp: now,
		}
		if r.Err != nil {
			event.State = pdu.StatusUnknown.String()
			event.Error = r.Err.Error()
		}
		events = append(events, event)
	}
	if err := journal().Record(events...); err != nil {
		log.Warn().Err(err).Msg("failed to record outlet events")
	}
}

func writeInventory(w io.Writer, inventory *pdu.Inventory, outFormat format.DataFormat) error {
	if outFormat != format.FORMAT_LIST {
		return format.Write(w, inventory, outFormat)
	}
	for _, o := range inventory.Outlets {
		name := fmt.Sprintf("%s:%d outlet %d", inventory.Host, inventory.Port, o.Index)
		if o.ID != "" {
			name += " (" + o.ID + ")"
		}
		if o.Error != "" {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, o.PowerState, o.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, o.PowerState)
	}
	return nil
}

func init() {
	pduCmd.PersistentFlags().String("xname", "", "Set the CabinetPDU xname of the device, e.g. x3000m0p0")
	pduCmd.PersistentFlags().String("xname-map", "", "Map hosts to CabinetPDU xnames, inline JSON or @file (json|yaml)")
	pduCycleCmd.Flags().Duration("delay", 2*time.Second, "Set how long outlets stay off")

	bindFlag("xname", pduCmd.PersistentFlags().Lookup("xname"))
	bindFlag("xname-map", pduCmd.PersistentFlags().Lookup("xname-map"))
	bindFlag("cycle.delay", pduCycleCmd.Flags().Lookup("delay"))

	pduCmd.AddCommand(pduStatusCmd, pduOnCmd, pduOffCmd, pduCycleCmd)
	rootCmd.AddCommand(pduCmd)
}
