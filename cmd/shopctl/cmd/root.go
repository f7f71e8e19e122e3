package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/appworld/internal/shopapi"
	"github.com/psantana5/appworld/pkg/tlsconf"
)

var (
	serverURL    string
	apiToken     string
	clientName   string
	caFile       string
	outputFormat string
	cfgFile      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "CLI for the shopd world daemon",
	Long:  `shopctl inspects and mutates the shared shop world served by shopd: catalog, cart, orders, snapshots and world health.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shopctl/config)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "shopd API URL (default from config or http://localhost:8085)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bearer token: the admin token or an issued client token")
	rootCmd.PersistentFlags().StringVar(&clientName, "client-name", "", "client name matching an issued token")
	rootCmd.PersistentFlags().StringVar(&caFile, "ca", "", "CA certificate for verifying the server")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".shopctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("server", "SHOPD_URL")
	viper.BindEnv("token", "SHOPD_TOKEN")
	viper.BindEnv("client_name", "SHOPD_CLIENT")

	// The config file is optional; flags win over config and env values
	_ = viper.ReadInConfig()

	if serverURL == "" {
		serverURL = viper.GetString("server")
	}
	if apiToken == "" {
		apiToken = viper.GetString("token")
	}
	if clientName == "" {
		clientName = viper.GetString("client_name")
	}
	if caFile == "" {
		caFile = viper.GetString("ca")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8085"
	}
}

// GetServerURL returns the configured server URL with trailing slashes removed
func GetServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// newClient builds an API client from the global flags
func newClient() (*shopapi.Client, error) {
	var client *shopapi.Client
	if caFile != "" {
		tlsConfig, err := tlsconf.ClientConfig("", "", caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load CA certificate: %w", err)
		}
		client = shopapi.NewClientWithTLS(GetServerURL(), apiToken, tlsConfig)
	} else {
		client = shopapi.NewClient(GetServerURL(), apiToken)
	}
	if clientName != "" {
		client.SetClientName(clientName)
	}
	return client, nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
