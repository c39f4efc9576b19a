// ====================================
// File: cmd/moonshot/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/dex/moonshot"
	"github.com/rovshanmuradov/moonshot-bot/internal/monitor"
	"github.com/rovshanmuradov/moonshot-bot/internal/storage/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "moonshot",
		Short:        "Trade Moonshot bonding-curve tokens on Solana",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path (default ./config.json or ./configs/config.json)")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a trade against the current curve without sending it",
	}
	quoteCmd.AddCommand(
		&cobra.Command{
			Use:   "buy <mint> <sol>",
			Short: "Tokens received for a SOL amount",
			Args:  cobra.ExactArgs(2),
			RunE:  runQuoteBuy,
		},
		&cobra.Command{
			Use:   "sell <mint> <tokens>",
			Short: "SOL received for a token amount",
			Args:  cobra.ExactArgs(2),
			RunE:  runQuoteSell,
		},
	)

	curveCmd := &cobra.Command{
		Use:   "curve <mint>",
		Short: "Show the curve account of a mint",
		Args:  cobra.ExactArgs(1),
		RunE:  runCurve,
	}

	buyCmd := &cobra.Command{
		Use:   "buy <mint> <sol>",
		Short: "Buy tokens for a SOL amount",
		Args:  cobra.ExactArgs(2),
		RunE:  runBuy,
	}
	buyCmd.Flags().Uint64("slippage-bps", 0, "slippage tolerance in basis points (0 uses config)")

	sellCmd := &cobra.Command{
		Use:   "sell <mint> [tokens]",
		Short: "Sell tokens; without an amount the whole balance is sold",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSell,
	}
	sellCmd.Flags().Uint64("slippage-bps", 0, "slippage tolerance in basis points (0 uses config)")

	balanceCmd := &cobra.Command{
		Use:   "balance <mint>",
		Short: "Show the wallet's token balance",
		Args:  cobra.ExactArgs(1),
		RunE:  runBalance,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded trades of the wallet (requires postgres_url)",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "number of trades to show")
	historyCmd.Flags().Int("offset", 0, "number of trades to skip")

	watchCmd := &cobra.Command{
		Use:   "watch <mint>",
		Short: "Poll the curve and show the value of the wallet's position",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval")
	watchCmd.Flags().String("cost", "", "SOL paid for the position; the first poll is used when empty")

	root.AddCommand(quoteCmd, curveCmd, buyCmd, sellCmd, balanceCmd, historyCmd, watchCmd)
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseMint(s string) (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", s, err)
	}
	return mint, nil
}

// fetchCurve читает состояние кривой без кошелька
func (a *app) fetchCurve(ctx context.Context, mint solana.PublicKey) (*moonshot.CurveAccount, error) {
	return moonshot.FetchCurveAccount(ctx, a.client, mint, a.dexCfg.ProgramID, a.dexCfg.Decode)
}

func runQuoteBuy(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}
	collateral, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	curve, err := a.fetchCurve(ctx, mint)
	if err != nil {
		return err
	}
	tokens, err := moonshot.TokensFromCollateral(curve, collateral, moonshot.Buy)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s SOL buys %s tokens\n", formatAmount(collateral), formatAmount(tokens))
	return nil
}

func runQuoteSell(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}
	tokens, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	curve, err := a.fetchCurve(ctx, mint)
	if err != nil {
		return err
	}
	collateral, err := moonshot.CollateralFromTokens(curve, tokens, moonshot.Sell)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s tokens sell for %s SOL\n", formatAmount(tokens), formatAmount(collateral))
	return nil
}

func runCurve(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	curve, err := a.fetchCurve(ctx, mint)
	if err != nil {
		return err
	}
	printCurve(cmd.OutOrStdout(), curve)
	return nil
}

func printCurve(w io.Writer, c *moonshot.CurveAccount) {
	fmt.Fprintf(w, "mint:                %s\n", c.Mint)
	fmt.Fprintf(w, "curve type:          %s\n", c.CurveType)
	fmt.Fprintf(w, "total supply:        %s\n", formatAmount(c.TotalSupply))
	fmt.Fprintf(w, "curve amount:        %s\n", formatAmount(c.CurveAmount))
	fmt.Fprintf(w, "curve position:      %s\n", formatAmount(c.CurvePosition()))
	fmt.Fprintf(w, "marketcap threshold: %s %s\n", formatAmount(c.MarketcapThreshold), c.MarketcapCurrency)
	fmt.Fprintf(w, "migration fee:       %s %s\n", formatAmount(c.MigrationFee), c.CollateralCurrency)
}

func runBuy(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}
	collateral, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	slippage, _ := cmd.Flags().GetUint64("slippage-bps")

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	result, err := a.dex.Buy(ctx, mint, collateral, slippage)
	a.recordTrade(ctx, result, err)
	a.report(cmd.OutOrStdout(), result)
	return err
}

func runSell(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}

	var amount *uint64
	if len(args) == 2 {
		tokens, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		amount = &tokens
	}
	slippage, _ := cmd.Flags().GetUint64("slippage-bps")

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	result, err := a.dex.Sell(ctx, mint, amount, slippage)
	a.recordTrade(ctx, result, err)
	a.report(cmd.OutOrStdout(), result)
	return err
}

func runBalance(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	balance, err := a.dex.GetTokenBalance(ctx, mint)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s tokens\n", formatAmount(balance))
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	if limit <= 0 || offset < 0 {
		return fmt.Errorf("invalid limit %d or offset %d", limit, offset)
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.journal == nil {
		return errors.New("trade journal is disabled: set postgres_url")
	}

	ctx, stop := signalContext()
	defer stop()

	trades, err := a.journal.ListTrades(ctx, a.wallet.String(), limit, offset)
	if err != nil {
		return err
	}
	printTrades(cmd.OutOrStdout(), trades)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	mint, err := parseMint(args[0])
	if err != nil {
		return err
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	var cost uint64
	if s, _ := cmd.Flags().GetString("cost"); s != "" {
		if cost, err = parseAmount(s); err != nil {
			return err
		}
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	balance, err := a.dex.GetTokenBalance(ctx, mint)
	if err != nil {
		return err
	}
	if balance == 0 {
		return moonshot.ErrZeroBalance
	}

	out := cmd.OutOrStdout()
	pm := monitor.NewPriceMonitor(a.dex, mint, balance, cost, interval, a.log.Logger, func(u monitor.PriceUpdate) {
		fmt.Fprintf(out, "%s  spot %s SOL  value %s SOL  change %s%%\n",
			u.Time.Format(time.TimeOnly), formatAmount(u.SpotPrice), formatAmount(u.Value), u.PercentChange)
	})
	return pm.Run(ctx)
}

func printTrades(w io.Writer, trades []*models.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(w, "no trades")
		return
	}
	for _, t := range trades {
		fmt.Fprintf(w, "%s  %-4s  %s tokens  %s SOL  %-9s  %s\n",
			t.CreatedAt.Format(time.RFC3339), t.Direction, formatAmount(t.TokenAmount),
			formatAmount(t.CollateralAmount), t.Status, t.Signature)
	}
}

// report печатает итог сделки; result может быть непустым и при ошибке подтверждения
func (a *app) report(w io.Writer, result *moonshot.TradeResult) {
	if result == nil {
		return
	}

	status := "unknown"
	if result.Status != nil {
		status = result.Status.Status
	}

	a.log.WithTransaction(result.Signature.String()).Info("Trade finished",
		zap.String("direction", result.Direction.String()),
		zap.String("status", status))

	fmt.Fprintf(w, "%s %s tokens for %s SOL (slippage %d bps)\n",
		result.Direction, formatAmount(result.TokenAmount), formatAmount(result.CollateralAmount), result.SlippageBps)
	fmt.Fprintf(w, "signature: %s\nstatus:    %s\n", result.Signature, status)
}
