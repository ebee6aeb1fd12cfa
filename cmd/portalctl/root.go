package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/config"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// cli carries the settings shared by every subcommand. Values come from
// flags, PORTAL_* environment variables or the config file, in that order.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tools for the carbon dApp portal",
		Long:          "Inspect balances and transactions on Sui, build the portal's programmable transactions and classify wallet errors.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "JSON config file (same format as the API server)")
	flags.String("network", defaults.Sui.Network, "sui network: mainnet, testnet, devnet or localnet")
	flags.String("rpc-url", "", "fullnode JSON-RPC URL, overrides --network")
	flags.Duration("timeout", 15*time.Second, "RPC timeout")
	flags.String("package-id", defaults.Sui.PackageID, "carbon_credits package id")
	flags.String("remittance-package-id", "", "remittance package id, defaults to --package-id")
	flags.String("marketplace-id", defaults.Sui.MarketplaceID, "marketplace shared object id")
	flags.String("treasury-id", defaults.Sui.TreasuryID, "treasury shared object id")
	flags.String("registry-id", defaults.Sui.RegistryID, "project registry shared object id")
	flags.Uint64("treasury-unit-price", defaults.Sui.TreasuryUnitPriceMist, "treasury price per credit in MIST")

	_ = c.v.BindPFlags(flags)
	c.v.SetEnvPrefix("PORTAL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	rootCmd.AddCommand(
		newBalanceCmd(c),
		newBuildCmd(c),
		newClassifyCmd(),
		newTxCmd(c),
	)
	return rootCmd
}

// load reads the config file when one is given. Its sui section fills in
// whatever flags and environment left unset.
func (c *cli) load() error {
	path := c.v.GetString("config")
	if path == "" {
		return nil
	}
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("json")
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	for key, fileKey := range map[string]string{
		"network":               "sui.network",
		"rpc-url":               "sui.rpc_url",
		"package-id":            "sui.package_id",
		"remittance-package-id": "sui.remittance_package_id",
		"marketplace-id":        "sui.marketplace_id",
		"treasury-id":           "sui.treasury_id",
		"registry-id":           "sui.registry_id",
		"treasury-unit-price":   "sui.treasury_unit_price_mist",
	} {
		if file.IsSet(fileKey) {
			c.v.SetDefault(key, file.Get(fileKey))
		}
	}
	return nil
}

func (c *cli) client() (*sui.Client, error) {
	return sui.NewClient(sui.ClientConfig{
		Network: c.v.GetString("network"),
		RPCURL:  c.v.GetString("rpc-url"),
		Timeout: c.v.GetDuration("timeout"),
	})
}

func (c *cli) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.v.GetDuration("timeout"))
}

func (c *cli) contract() txbuilder.ContractConfig {
	return txbuilder.ContractConfig{
		PackageID:     c.v.GetString("package-id"),
		MarketplaceID: c.v.GetString("marketplace-id"),
		TreasuryID:    c.v.GetString("treasury-id"),
		RegistryID:    c.v.GetString("registry-id"),
	}
}

func (c *cli) remittancePackage() string {
	if id := c.v.GetString("remittance-package-id"); id != "" {
		return id
	}
	return c.v.GetString("package-id")
}
