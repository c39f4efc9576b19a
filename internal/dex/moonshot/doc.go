// Package moonshot implements a client for the Moonshot bonding-curve token sale program on Solana.
//
// This package provides methods for:
// - Deriving and decoding a mint's curve account.
// - Pricing trades against the curve with exact decimal arithmetic.
// - Building, signing and submitting buy and sell transactions.
//
// Key Types and Functions:
//
// - CurveAccount: decoded snapshot of a curve account, fetched fresh for every quote.
// - Curve, LinearV1, CurveFor(): pricing formula selected by the account's curve type.
// - TokensFromCollateral(), CollateralFromTokens(): token and collateral conversions.
// - DEX: trading client with QuoteBuy, QuoteSell, Buy, Sell and GetTokenBalance.
//
// Source files:
//   - accounts.go: PDA derivation, curve account fetch and decode.
//   - curve.go: pricing engine.
//   - instructions.go: buy/sell instruction layout.
//   - trade.go: preparation of buy/sell transactions.
//   - moonshot.go: DEX client, signing and submission.
//
// Usage example:
//
//	client, err := solbc.NewClient(cfg.RPCList, rpc.Options{RateLimit: 10}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	manager := transaction.NewManager(client, logger, transaction.DefaultConfig(), nil)
//
//	dex, err := moonshot.NewDEX(client, manager, wallet, logger, moonshot.GetDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := dex.Buy(ctx, mint, 10_000_000, 500)
package moonshot
