package event

import "time"

// Base is the underlying event across all actions that occur for the backtester
// Data, fill, order events all contain the base event and store important and
// consistent information
type Base struct {
	Offset  int64     `json:"-"`
	Time    time.Time `json:"timestamp"`
	Symbol  string    `json:"symbol"`
	Reasons []string  `json:"reasons,omitempty"`
}
