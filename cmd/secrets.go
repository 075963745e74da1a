package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	secretsStoreFormat    string
	secretsStoreInputFile string
)

var secretsCmd = &cobra.Command{
	Use: "secrets",
	Example: `  // generate new key and set environment variable
  export MASTER_KEY=$(pductl secrets generatekey)

  // store the communities of one PDU (read:write)
  pductl secrets store 10.254.1.20 ops-ro:ops-rw -f secrets.json

  // store communities used by every PDU without an entry of its own
  pductl secrets store default public:private -f secrets.json

  // retrieve communities from secrets store
  pductl secrets retrieve 10.254.1.20 -f secrets.json

  // list stored ids
  pductl secrets list -f secrets.json`,
	Short: "Manage SNMP communities for PDUs",
	Long: "Manage the SNMP community strings used for each PDU. Entries are keyed by host, with '" +
		secrets.DEFAULT_KEY + "' as the fallback. This requires generating a key and setting the 'MASTER_KEY' environment variable.",
}

var secretsGenerateKeyCmd = &cobra.Command{
	Use:   "generatekey",
	Args:  cobra.NoArgs,
	Short: "Generates a new 32-byte master key (in hex).",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateMasterKey()
		if err != nil {
			return fmt.Errorf("failed to generate master key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var secretsStoreCmd = &cobra.Command{
	Use:   "store <host|default> [value]",
	Args:  cobra.RangeArgs(1, 2),
	Short: "Stores the communities of a PDU.",
	Long: "Stores the communities of a PDU. The value format is chosen with --input-format:\n" +
		"  basic   read:write\n" +
		"  json    {\"read\": \"...\", \"write\": \"...\"}\n" +
		"  base64  base64 encoded json",
	RunE: func(cmd *cobra.Command, args []string) error {
		secretID := args[0]
		value := ""
		if len(args) > 1 {
			value = args[1]
		}

		if secretsStoreInputFile != "" {
			if value != "" {
				return fmt.Errorf("cannot use -i/--input-file with positional argument")
			}
			b, err := os.ReadFile(secretsStoreInputFile)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			value = strings.TrimSpace(string(b))
		}
		if value == "" {
			return fmt.Errorf("no input data or file")
		}

		communities, err := parseCommunities(value, secretsStoreFormat)
		if err != nil {
			return err
		}
		b, err := json.Marshal(communities)
		if err != nil {
			return err
		}

		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		return store.StoreSecretByID(secretID, string(b))
	},
}

func parseCommunities(value string, inputFormat string) (pdu.Communities, error) {
	var communities pdu.Communities
	switch inputFormat {
	case "basic":
		read, write, found := strings.Cut(value, ":")
		if !found {
			return communities, fmt.Errorf("expected a value in read:write format")
		}
		communities = pdu.Communities{Read: read, Write: write}
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return communities, fmt.Errorf("failed to decode base64 data: %w", err)
		}
		return parseCommunities(string(decoded), "json")
	case "json":
		if err := json.Unmarshal([]byte(value), &communities); err != nil {
			return communities, fmt.Errorf("value is not valid JSON: %w", err)
		}
	default:
		return communities, fmt.Errorf("unknown input format %q (basic|json|base64)", inputFormat)
	}
	if communities.Read == "" || communities.Write == "" {
		return communities, fmt.Errorf("both a read and a write community are required")
	}
	return communities, nil
}

var secretsRetrieveCmd = &cobra.Command{
	Use:   "retrieve <host|default>",
	Args:  cobra.ExactArgs(1),
	Short: "Prints the communities stored for an id.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		value, err := store.GetSecretByID(args[0])
		if err != nil {
			return fmt.Errorf("failed to retrieve secret: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], value)
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.NoArgs,
	Short: "Lists the stored ids.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		stored, err := store.ListSecrets()
		if err != nil {
			return fmt.Errorf("failed to list secrets: %w", err)
		}
		ids := make([]string, 0, len(stored))
		for id := range stored {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var secretsRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Args:  cobra.MinimumNArgs(1),
	Short: "Remove secrets by IDs from secret store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := store.RemoveSecretByID(id); err != nil {
				return fmt.Errorf("failed to remove secret: %w", err)
			}
		}
		return nil
	},
}

func init() {
	secretsStoreCmd.Flags().StringVar(&secretsStoreFormat, "input-format", "basic", "Set the input format of the value (basic|json|base64)")
	secretsStoreCmd.Flags().StringVarP(&secretsStoreInputFile, "input-file", "i", "", "Set the file to read as input")

	secretsCmd.AddCommand(secretsGenerateKeyCmd, secretsStoreCmd, secretsRetrieveCmd, secretsListCmd, secretsRemoveCmd)
	rootCmd.AddCommand(secretsCmd)
}
