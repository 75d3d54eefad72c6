package fyers

import (
	"testing"

	"volume-spike-detector/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTick_SymbolUpdate(t *testing.T) {
	tick, kind, err := DecodeTick([]byte(`{"type":"sf","symbol":"NSE:SBIN-EQ","ltp":812.5,"vol_traded_today":1250000,"exch_feed_time":1760000000}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTick, kind)
	assert.Equal(t, "NSE:SBIN-EQ", tick.Symbol)
	assert.Equal(t, 812.5, tick.Price)
	assert.Equal(t, int64(1250000), tick.CumulativeVolume)
	assert.Equal(t, int64(1760000000), tick.ExchangeTime)
}

func TestDecodeTick_UntypedMessageIsTick(t *testing.T) {
	tick, kind, err := DecodeTick([]byte(`{"symbol":"NSE:TCS-EQ","ltp":3900,"vol_traded_today":10.0}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTick, kind)
	assert.Equal(t, int64(10), tick.CumulativeVolume)
}

func TestDecodeTick_ControlMessages(t *testing.T) {
	for _, typ := range []string{"cn", "ful", "sub", "ck", "lit", "dp"} {
		_, kind, err := DecodeTick([]byte(`{"type":"` + typ + `","code":200}`))
		require.NoError(t, err, typ)
		assert.Equal(t, MessageControl, kind, typ)
	}
}

func TestDecodeTick_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"type":`,
		"no symbol":      `{"type":"sf","ltp":1,"vol_traded_today":1}`,
		"no ltp":         `{"type":"sf","symbol":"X","vol_traded_today":1}`,
		"no volume":      `{"type":"sf","symbol":"X","ltp":1}`,
		"volume string":  `{"type":"sf","symbol":"X","ltp":1,"vol_traded_today":"12"}`,
		"fractional vol": `{"type":"sf","symbol":"X","ltp":1,"vol_traded_today":1.5}`,
	}
	for name, raw := range cases {
		_, _, err := DecodeTick([]byte(raw))
		var vErr *helpers.ValidationError
		assert.ErrorAs(t, err, &vErr, name)
	}
}
