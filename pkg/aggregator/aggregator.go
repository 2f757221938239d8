// Package aggregator reconciles per-source observations into one price per
// symbol using median-of-sources with MAD based outlier rejection.
package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// madMultiplier is the rejection threshold: observations farther than
// 3 * MAD from the median are discarded.
var madMultiplier = sdkmath.LegacyNewDec(3)

// Confidence scores by surviving source count.
const (
	ConfidenceSingle   = 60
	ConfidenceDual     = 80
	ConfidenceMultiple = 100
)

// Aggregator computes aggregated prices from raw observations.
type Aggregator struct {
	logger log.Logger
}

// New creates an Aggregator.
func New(logger log.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate reconciles the observations for one symbol. With three or more
// sources the result is the median of the MAD-filtered set; with two it is
// the mean; with one it is a passthrough. The filter never empties the set.
func (a *Aggregator) Aggregate(symbol string, observations []types.PriceObservation) (*types.AggregatedPrice, error) {
	if len(observations) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "symbol %s", symbol)
	}

	valid := make([]types.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Symbol != symbol {
			return nil, sdkerrors.Wrapf(types.ErrMixedSymbols, "got %s, want %s", obs.Symbol, symbol)
		}
		if err := obs.Validate(); err != nil {
			a.logger.Debug("dropping invalid observation", "symbol", symbol, "source", obs.Source, "err", err)
			continue
		}
		valid = append(valid, obs)
	}
	if len(valid) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "symbol %s: no valid observations", symbol)
	}

	kept := filterOutliers(valid)

	prices := make([]sdkmath.LegacyDec, len(kept))
	for i, obs := range kept {
		prices[i] = obs.Price
	}

	var price sdkmath.LegacyDec
	switch len(kept) {
	case 1:
		price = prices[0]
	case 2:
		price = prices[0].Add(prices[1]).Quo(sdkmath.LegacyNewDec(2))
	default:
		price = calculateMedian(prices)
	}

	agg := &types.AggregatedPrice{
		Symbol:             symbol,
		Price:              price,
		Timestamp:          time.Now().UTC(),
		SourceObservations: kept,
		StandardDeviation:  calculateStdDev(prices),
		Confidence:         confidenceFor(len(kept)),
	}
	if err := agg.Validate(); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "symbol %s: %v", symbol, err)
	}
	return agg, nil
}

// AggregateAll reconciles every symbol in the map, dropping and logging the
// symbols that cannot be aggregated. The result is sorted by symbol.
func (a *Aggregator) AggregateAll(bySymbol map[string][]types.PriceObservation) []types.AggregatedPrice {
	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]types.AggregatedPrice, 0, len(symbols))
	for _, symbol := range symbols {
		agg, err := a.Aggregate(symbol, bySymbol[symbol])
		if err != nil {
			a.logger.Error("symbol dropped from cycle", "symbol", symbol, "err", err)
			continue
		}
		out = append(out, *agg)
	}
	return out
}

// filterOutliers removes observations farther than 3 * MAD from the median.
// Below three observations, or when the filter would remove everything, the
// input set is preserved.
func filterOutliers(observations []types.PriceObservation) []types.PriceObservation {
	if len(observations) < 3 {
		return observations
	}

	prices := make([]sdkmath.LegacyDec, len(observations))
	for i, obs := range observations {
		prices[i] = obs.Price
	}
	median := calculateMedian(prices)
	mad := calculateMAD(prices, median)

	// A zero MAD keeps only the observations equal to the median.
	threshold := mad.Mul(madMultiplier)
	kept := make([]types.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Price.Sub(median).Abs().LTE(threshold) {
			kept = append(kept, obs)
		}
	}
	if len(kept) == 0 {
		return observations
	}
	return kept
}

// calculateMedian returns the median, averaging the two central values for
// even-sized inputs.
func calculateMedian(prices []sdkmath.LegacyDec) sdkmath.LegacyDec {
	if len(prices) == 0 {
		return sdkmath.LegacyZeroDec()
	}

	sorted := make([]sdkmath.LegacyDec, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LT(sorted[j])
	})

	n := len(sorted)
	if n%2 == 0 {
		return sorted[n/2-1].Add(sorted[n/2]).Quo(sdkmath.LegacyNewDec(2))
	}
	return sorted[n/2]
}

// calculateMAD returns the median absolute deviation from the given median.
func calculateMAD(prices []sdkmath.LegacyDec, median sdkmath.LegacyDec) sdkmath.LegacyDec {
	if len(prices) == 0 {
		return sdkmath.LegacyZeroDec()
	}

	deviations := make([]sdkmath.LegacyDec, len(prices))
	for i, price := range prices {
		deviations[i] = price.Sub(median).Abs()
	}
	return calculateMedian(deviations)
}

// calculateStdDev returns the population standard deviation.
func calculateStdDev(prices []sdkmath.LegacyDec) sdkmath.LegacyDec {
	if len(prices) < 2 {
		return sdkmath.LegacyZeroDec()
	}

	mean := sdkmath.LegacyZeroDec()
	for _, p := range prices {
		mean = mean.Add(p)
	}
	mean = mean.Quo(sdkmath.LegacyNewDec(int64(len(prices))))

	variance := sdkmath.LegacyZeroDec()
	for _, p := range prices {
		diff := p.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Quo(sdkmath.LegacyNewDec(int64(len(prices))))

	varianceFloat, err := variance.Float64()
	if err != nil || varianceFloat < 0 {
		return sdkmath.LegacyZeroDec()
	}
	return sdkmath.LegacyMustNewDecFromStr(fmt.Sprintf("%.18f", math.Sqrt(varianceFloat)))
}

func confidenceFor(sources int) int {
	switch {
	case sources >= 3:
		return ConfidenceMultiple
	case sources == 2:
		return ConfidenceDual
	default:
		return ConfidenceSingle
	}
}
