package moonshot

import "errors"

var (
	// ErrCurveStateUnavailable means no price can be produced: the curve account is
	// missing, truncated, or carries an unknown enum tag.
	ErrCurveStateUnavailable = errors.New("curve state unavailable")

	// ErrNoRealRoot is returned when the price equation has no real solution for the request.
	ErrNoRealRoot = errors.New("negative discriminant, no real roots for token amount")

	// ErrUndefinedCollateral is returned when the collateral amount rounds to zero or below.
	ErrUndefinedCollateral = errors.New("expected collateral amount is 0 or undefined")

	// ErrUnsupportedCurve is returned for curve types this client cannot price.
	ErrUnsupportedCurve = errors.New("unsupported curve type")

	// ErrZeroBalance is returned when a sell is requested with nothing to sell.
	ErrZeroBalance = errors.New("token balance is zero")

	// ErrZeroAmount is returned when a buy would purchase no tokens.
	ErrZeroAmount = errors.New("trade amount is zero")
)
