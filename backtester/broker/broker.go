package broker

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultFillPolicy fills market orders at the close of the bar they were
// accepted on with no volume cap
func DefaultFillPolicy() FillPolicy {
	return FillPolicy{Timing: SameBarClose}
}

// Validate ensures the policy is usable
func (p *FillPolicy) Validate() error {
	switch p.Timing {
	case SameBarClose, NextBarOpen:
	default:
		return fmt.Errorf("%w %q", errInvalidFillTiming, p.Timing)
	}
	if p.VolumeLimit.IsNegative() || p.VolumeLimit.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w, received %v", errInvalidVolumeCap, p.VolumeLimit)
	}
	return nil
}
