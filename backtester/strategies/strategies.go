package strategies

import (
	"fmt"
	"strings"

	"github.com/findwinds/QuantCode/backtester/strategies/base"
	"github.com/findwinds/QuantCode/backtester/strategies/buyandhold"
	"github.com/findwinds/QuantCode/backtester/strategies/dualma"
	"github.com/findwinds/QuantCode/backtester/strategies/rsi"
)

// LoadStrategyByName returns a new instance of the named strategy with its
// default settings applied
func LoadStrategyByName(name string) (Handler, error) {
	strats := GetStrategies()
	for i := range strats {
		if !strings.EqualFold(name, strats[i].Name()) {
			continue
		}
		strats[i].SetDefaults()
		return strats[i], nil
	}
	return nil, fmt.Errorf("strategy '%v' %w", name, base.ErrStrategyNotFound)
}

// GetStrategies returns a fresh instance of every supported strategy
func GetStrategies() []Handler {
	return []Handler{
		new(dualma.Strategy),
		new(rsi.Strategy),
		new(buyandhold.Strategy),
	}
}
