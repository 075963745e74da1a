// Package cmd implements the pductl command line. Commands only translate
// flags and arguments into calls on pkg/pdu, pkg/client and pkg/daemon.
//
//	cmd/pdu.go     --> pkg/pdu ( Controller.QueryOutlets(), SetOutlets(), CycleOutlets() )
//	cmd/daemon.go  --> pkg/daemon ( RunServer() )
//	cmd/history.go --> internal/cache/sqlite ( GetOutletEvents() )
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pductl "github.com/OpenCHAMI/pductl/internal"
	"github.com/OpenCHAMI/pductl/internal/format"
	pdulog "github.com/OpenCHAMI/pductl/internal/log"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	logLevel     = pdulog.INFO
	outputFormat = format.FORMAT_LIST
)

// The `root` command doesn't do anything on it's own except display
// a help message and then exits.
var rootCmd = &cobra.Command{
	Use:   "pductl",
	Short: "SNMPv1 outlet control for CyberPower ePDUs",
	Long:  "Query and switch the outlets of CyberPower ePDUs over SNMPv1, directly or through a pductl daemon.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logLevel.Set(viper.GetString("log-level")); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if err := outputFormat.Set(viper.GetString("format")); err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}
		return pdulog.InitWithLogLevel(logLevel, viper.GetString("log-file"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := pdulog.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close log file")
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("failed to print help")
		}
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig)
	pductl.SetDefaults()

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Set the config file path")
	flags.Var(&logLevel, "log-level", fmt.Sprintf("Set the log level %v", pdulog.Levels))
	flags.String("log-file", "", "Also write logs to this file")
	flags.IntP("concurrency", "j", -1, "Set the number of outlets handled in parallel (default: one per outlet)")
	flags.IntP("port", "P", int(pdu.DefaultPort), "Set the SNMP agent port")
	flags.String("read-community", pdu.DefaultReadCommunity, "Set the community used for status queries")
	flags.String("write-community", pdu.DefaultWriteCommunity, "Set the community used for outlet control")
	flags.Duration("read-timeout", pdu.DefaultReadTimeout, "Set the timeout of each status query attempt")
	flags.Duration("write-timeout", pdu.DefaultWriteTimeout, "Set the timeout of each control attempt")
	flags.Int("retries", pdu.DefaultRetries, "Set the number of retries after a timed out attempt")
	flags.StringP("secrets-file", "f", "", "Load per-device communities from this secret store")
	flags.String("journal", pductl.DefaultJournalPath(), "Set the outlet event journal path")
	flags.Bool("no-journal", false, "Do not record outlet events")
	flags.String("daemon-url", "", "Send outlet requests through a pductl daemon at this URL")
	flags.VarP(&outputFormat, "format", "F", "Set the output format (list|json|yaml)")

	bindFlag("config", flags.Lookup("config"))
	bindFlag("log-level", flags.Lookup("log-level"))
	bindFlag("log-file", flags.Lookup("log-file"))
	bindFlag("concurrency", flags.Lookup("concurrency"))
	bindFlag("port", flags.Lookup("port"))
	bindFlag("community.read", flags.Lookup("read-community"))
	bindFlag("community.write", flags.Lookup("write-community"))
	bindFlag("timeout.read", flags.Lookup("read-timeout"))
	bindFlag("timeout.write", flags.Lookup("write-timeout"))
	bindFlag("retries", flags.Lookup("retries"))
	bindFlag("secrets.file", flags.Lookup("secrets-file"))
	bindFlag("journal.path", flags.Lookup("journal"))
	bindFlag("journal.disabled", flags.Lookup("no-journal"))
	bindFlag("daemon.url", flags.Lookup("daemon-url"))
	bindFlag("format", flags.Lookup("format"))
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to bind cobra/viper flag")
	}
}

// InitializeConfig() reads the environment and, when present, a config file.
// Flags take precedence over both.
func InitializeConfig() {
	viper.SetEnvPrefix("PDUCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if path := viper.GetString("config"); path != "" {
		if err := pductl.LoadConfig(path); err != nil {
			log.Error().Err(err).Msg("failed to load config")
		}
		return
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = "$HOME/.config"
	}
	viper.AddConfigPath(configDir + "/pductl")
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Error().Err(err).Msg("failed to load config")
		}
	}
}
