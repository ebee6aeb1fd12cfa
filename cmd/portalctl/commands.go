package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

func newBalanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the SUI balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := sui.NormalizeAddress(args[0])
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := c.context()
			defer cancel()
			bal, err := client.GetBalance(ctx, owner, sui.SUICoinType)
			if err != nil {
				return err
			}
			mist, err := bal.Mist()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s SUI (%d MIST, %d coins)\n", sui.FormatSUI(mist, 4), mist, bal.CoinObjectCount)
			return nil
		},
	}
}

func newBuildCmd(c *cli) *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Print an unsigned programmable transaction as JSON",
	}

	var sender string
	buildCmd.PersistentFlags().StringVar(&sender, "sender", "", "sender address to embed")

	emit := func(cmd *cobra.Command, tx *txbuilder.Transaction) error {
		if sender != "" {
			addr, err := sui.NormalizeAddress(sender)
			if err != nil {
				return err
			}
			tx = tx.WithSender(addr)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tx)
	}

	var (
		to     string
		amount string
	)
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "remittance::send_remittance of --amount SUI to --to",
		RunE: func(cmd *cobra.Command, args []string) error {
			mist, err := sui.ParseSUI(amount)
			if err != nil {
				return err
			}
			tx, err := txbuilder.Transfer(c.remittancePackage(), to, mist)
			if err != nil {
				return err
			}
			return emit(cmd, tx)
		},
	}
	transferCmd.Flags().StringVarP(&to, "to", "t", "", "recipient address")
	transferCmd.Flags().StringVarP(&amount, "amount", "a", "", "amount in SUI")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")

	var credits uint64
	purchaseCmd := &cobra.Command{
		Use:   "purchase",
		Short: "carbon_credits::purchase_carbon_credits from the treasury",
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := txbuilder.PurchaseFromTreasury(c.contract(), credits, c.v.GetUint64("treasury-unit-price"))
			if err != nil {
				return err
			}
			return emit(cmd, tx)
		},
	}
	purchaseCmd.Flags().Uint64VarP(&credits, "credits", "n", 0, "number of credits")
	_ = purchaseCmd.MarkFlagRequired("credits")

	var (
		listing string
		payment string
	)
	buyCmd := &cobra.Command{
		Use:   "buy",
		Short: "carbon_credits::buy_carbon_credits against a listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			mist, err := sui.ParseSUI(payment)
			if err != nil {
				return err
			}
			tx, err := txbuilder.BuyFromListing(c.contract(), listing, mist)
			if err != nil {
				return err
			}
			return emit(cmd, tx)
		},
	}
	buyCmd.Flags().StringVar(&listing, "listing", "", "listing object id")
	buyCmd.Flags().StringVar(&payment, "payment", "", "payment in SUI")
	_ = buyCmd.MarkFlagRequired("listing")
	_ = buyCmd.MarkFlagRequired("payment")

	buildCmd.AddCommand(transferCmd, purchaseCmd, buyCmd)
	return buildCmd
}

type classification struct {
	Kind      outcome.Kind `json:"kind"`
	AbortCode *uint64      `json:"abort_code,omitempty"`
	Notice    string       `json:"notice"`
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <error message>",
		Short: "Show how a wallet or chain error is reported to the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classified, notice := outcome.Notice(errors.New(args[0]), outcome.DefaultMessages)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(classification{Kind: classified.Kind, AbortCode: classified.AbortCode, Notice: notice})
		},
	}
}

func newTxCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <digest>",
		Short: "Show the execution status of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := c.context()
			defer cancel()
			resp, err := client.GetTransactionBlock(ctx, args[0])
			if sui.IsNotFound(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not found (pending or unknown)\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status := "unknown"
			if resp.Effects != nil {
				status = resp.Effects.Status.Status
			}
			fmt.Fprintf(out, "digest:     %s\n", resp.Digest)
			fmt.Fprintf(out, "status:     %s\n", status)
			if resp.Effects != nil && resp.Effects.Status.Error != "" {
				fmt.Fprintf(out, "error:      %s\n", resp.Effects.Status.Error)
			}
			if cp, ok := resp.CheckpointNumber(); ok {
				fmt.Fprintf(out, "checkpoint: %d\n", cp)
			}
			return nil
		},
	}
}
