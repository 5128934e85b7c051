package control

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spread-signal-monitor/internal/core/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestSelection_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	sel, err := s.Selection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoutingSelection{}, sel)
	assert.False(t, sel.IsComplete())
}

func TestSelection_ReadsKeys(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Set(KeyExchangeA, "binance")
	mr.Set(KeyExchangeB, "okx")
	mr.Set(KeySymbol, "btcusdt, ETHUSDT,,")

	sel, err := s.Selection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "binance", sel.ExchangeA)
	assert.Equal(t, "okx", sel.ExchangeB)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, sel.Symbols)
	assert.Equal(t, "BTCUSDT", sel.PrimarySymbol())
}

func TestSetSelection_RoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	want := model.RoutingSelection{ExchangeA: "bybit", ExchangeB: "bitget", Symbols: []string{"SOLUSDT", "BTCUSDT"}}

	require.NoError(t, s.SetSelection(ctx, want))
	assert.Equal(t, "SOLUSDT,BTCUSDT", mustGet(t, mr, KeySymbol))

	got, err := s.Selection(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestSelection_ReadError(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	_, err := s.Selection(context.Background())
	assert.Error(t, err)
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"BTCUSDT", []string{"BTCUSDT"}},
		{"ethusdt,btcusdt", []string{"ETHUSDT", "BTCUSDT"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSymbols(tt.raw), tt.raw)
	}
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
