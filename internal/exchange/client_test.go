package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT:USDT": "BTCUSDT",
		"ETH/USDT":      "ETHUSDT",
		"DOGEUSDT":      "DOGEUSDT",
		"btc/usdt:usdt": "BTCUSDT",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSymbol(in), "input %q", in)
	}
}
