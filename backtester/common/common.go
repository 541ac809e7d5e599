package common

import (
	"strings"
	"unicode"
)

// String implements the stringer interface
func (k EventKind) String() string {
	return string(k)
}

// IsValid returns whether the kind is one the bus dispatches
func (k EventKind) IsValid() bool {
	for i := range EventKinds {
		if EventKinds[i] == k {
			return true
		}
	}
	return false
}

// BaseSymbol strips the trailing contract month from a futures symbol and
// upper cases the result, ie rb2310 becomes RB
func BaseSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	end := strings.IndexFunc(symbol, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end <= 0 {
		return symbol
	}
	return symbol[:end]
}
