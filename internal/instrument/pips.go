package instrument

import (
	"math"
	"strings"
)

// Special-cased instruments whose pip size differs from the forex default.
var pipTable = map[string]float64{
	"XAUUSD": 0.1,   // gold
	"XAGUSD": 0.001, // silver
}

const (
	jpyPipSize     = 0.01
	defaultPipSize = 0.0001
)

// PipSize returns the pip size for a symbol. JPY-quoted crosses use 0.01,
// metals use their listed sizes, everything else falls back to the standard
// forex increment. Unknown symbols are not an error; the default is a known
// coarse approximation.
func PipSize(symbol string) float64 {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if size, ok := pipTable[sym]; ok {
		return size
	}
	if strings.HasSuffix(sym, "JPY") {
		return jpyPipSize
	}
	return defaultPipSize
}

// Pips returns the absolute distance between two prices expressed in pips.
func Pips(symbol string, a, b float64) float64 {
	return math.Abs(a-b) / PipSize(symbol)
}
