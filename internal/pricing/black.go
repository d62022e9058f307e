// Package pricing prices European options on the autodiff tape.
//
// Every price is recorded as a tape computation, so one backward sweep
// yields all first-order sensitivities at once:
//   - Black: forward-measure Black formula and its Greeks
//   - AnalyticEuropean: Black-Scholes in spot terms
//   - MonteCarloEuropean: pathwise Monte-Carlo Greeks under GBM
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/aad/internal/autodiff"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("pricing: invalid parameters")

// omega returns +1 for calls and -1 for puts.
func omega(call bool) float64 {
	if call {
		return 1
	}
	return -1
}

// BlackInputs are the recorded inputs of the Black formula.
type BlackInputs struct {
	Forward    autodiff.Number
	Volatility autodiff.Number
	Numeraire  autodiff.Number // discount factor to expiry
	Strike     autodiff.Number
	Expiry     autodiff.Number // year fraction
	Call       bool
}

// Black records the Black formula
//
//	price = N·ω·(F·Φ(ω·d₊) − K·Φ(ω·d₋))
//	d± = ln(F/K)/(σ√T) ± σ√T/2
//
// with ω = +1 for a call and −1 for a put. All inputs must live on the same
// tape. Invalid inputs (non-positive forward, strike, volatility or expiry)
// fail the tape with a domain error.
func Black(in BlackInputs) autodiff.Number {
	w := omega(in.Call)
	stdDev := in.Volatility.Mul(in.Expiry.Sqrt())
	dPlus := in.Forward.Div(in.Strike).Log().Div(stdDev).Add(stdDev.MulScalar(0.5))
	dMinus := dPlus.Sub(stdDev)
	nPlus := dPlus.MulScalar(w).NormCDF()
	nMinus := dMinus.MulScalar(w).NormCDF()
	return in.Numeraire.Mul(in.Forward.Mul(nPlus).Sub(in.Strike.Mul(nMinus))).MulScalar(w)
}

// BlackParams are plain Black formula inputs.
type BlackParams struct {
	Forward    float64
	Volatility float64
	Numeraire  float64
	Strike     float64
	Expiry     float64
	Call       bool
}

// Validate checks that every input is positive and finite.
func (p BlackParams) Validate() error {
	return positive(
		param{"forward", p.Forward},
		param{"volatility", p.Volatility},
		param{"numeraire", p.Numeraire},
		param{"strike", p.Strike},
		param{"expiry", p.Expiry},
	)
}

// Greeks are a Black price and its partial derivatives.
type Greeks struct {
	Price      float64
	Forward    float64 // ∂price/∂forward
	Volatility float64 // ∂price/∂volatility
	Numeraire  float64 // ∂price/∂numeraire
	Strike     float64 // ∂price/∂strike
	Expiry     float64 // ∂price/∂expiry
}

// BlackGreeks prices p with Black and returns all five sensitivities from
// one backward sweep. opts configure the tape.
func BlackGreeks(p BlackParams, opts ...autodiff.Option) (Greeks, error) {
	if err := p.Validate(); err != nil {
		return Greeks{}, err
	}

	tape := autodiff.NewTape(opts...)
	x := tape.Vars(p.Forward, p.Volatility, p.Numeraire, p.Strike, p.Expiry)
	price := Black(BlackInputs{
		Forward:    x[0],
		Volatility: x[1],
		Numeraire:  x[2],
		Strike:     x[3],
		Expiry:     x[4],
		Call:       p.Call,
	})
	if err := price.PropagateToStart(); err != nil {
		return Greeks{}, fmt.Errorf("pricing: black: %w", err)
	}

	return Greeks{
		Price:      price.Value(),
		Forward:    x[0].Adjoint(),
		Volatility: x[1].Adjoint(),
		Numeraire:  x[2].Adjoint(),
		Strike:     x[3].Adjoint(),
		Expiry:     x[4].Adjoint(),
	}, nil
}

// European is a European option on a lognormal underlying with a flat
// continuously compounded rate.
type European struct {
	Spot       float64
	Strike     float64
	Rate       float64
	Volatility float64
	Expiry     float64
	Call       bool
}

// Validate checks the option parameters.
func (e European) Validate() error {
	if math.IsNaN(e.Rate) || math.IsInf(e.Rate, 0) {
		return fmt.Errorf("%w: rate must be finite, got %g", ErrInvalidParams, e.Rate)
	}
	return positive(
		param{"spot", e.Spot},
		param{"strike", e.Strike},
		param{"volatility", e.Volatility},
		param{"expiry", e.Expiry},
	)
}

// Sensitivities are a European option price and its spot-model Greeks.
type Sensitivities struct {
	Price float64
	Delta float64 // ∂price/∂spot
	Vega  float64 // ∂price/∂volatility
	Rho   float64 // ∂price/∂rate
	Theta float64 // −∂price/∂expiry
}

// europeanInputs records the model inputs in the order spot, volatility,
// rate, expiry.
func europeanInputs(tape *autodiff.Tape, e European) []autodiff.Number {
	return tape.Vars(e.Spot, e.Volatility, e.Rate, e.Expiry)
}

func sensitivities(price autodiff.Number, x []autodiff.Number) Sensitivities {
	return Sensitivities{
		Price: price.Value(),
		Delta: x[0].Adjoint(),
		Vega:  x[1].Adjoint(),
		Rho:   x[2].Adjoint(),
		Theta: -x[3].Adjoint(),
	}
}

// AnalyticEuropean prices e with Black-Scholes: the Black formula on the
// forward S·e^{rT} with numeraire e^{−rT}.
func AnalyticEuropean(e European, opts ...autodiff.Option) (Sensitivities, error) {
	if err := e.Validate(); err != nil {
		return Sensitivities{}, err
	}

	tape := autodiff.NewTape(opts...)
	x := europeanInputs(tape, e)
	spot, vol, rate, expiry := x[0], x[1], x[2], x[3]

	rt := rate.Mul(expiry)
	price := Black(BlackInputs{
		Forward:    spot.Mul(rt.Exp()),
		Volatility: vol,
		Numeraire:  rt.Neg().Exp(),
		Strike:     tape.Var(e.Strike),
		Expiry:     expiry,
		Call:       e.Call,
	})
	if err := price.PropagateToStart(); err != nil {
		return Sensitivities{}, fmt.Errorf("pricing: black-scholes: %w", err)
	}
	return sensitivities(price, x), nil
}

type param struct {
	name  string
	value float64
}

// positive checks that every value is positive and finite.
func positive(params ...param) error {
	for _, p := range params {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrInvalidParams, p.name, p.value)
		}
	}
	return nil
}
