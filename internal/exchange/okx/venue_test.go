// Package okx OKX 解码器测试
package okx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"spread-signal-monitor/internal/core/model"
)

// TestDecoder_RoundTrip 解码保留合约与价格
func TestDecoder_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("解码保留价格并还原统一交易对", prop.ForAll(
		func(px float64, sym string) bool {
			instID, err := InstID(sym)
			if err != nil {
				return false
			}
			pxStr := fmt.Sprintf("%.4f", px)
			want, _ := strconv.ParseFloat(pxStr, 64)

			raw := fmt.Sprintf(`{"arg":{"channel":"tickers","instId":"%s"},"data":[{"instId":"%s","last":"%s","ts":"1700000000000"}]}`,
				instID, instID, pxStr)
			ticks, err := Decoder{}.Decode([]byte(raw))
			if err != nil || len(ticks) != 1 {
				return false
			}
			return ticks[0].Exchange == model.ExchangeOKX && ticks[0].Symbol == sym && ticks[0].Price == want
		},
		gen.Float64Range(0.001, 200000),
		gen.OneConstOf("BTCUSDT", "ETHUSDT", "LINKUSDT", "1000PEPEUSDT"),
	))

	properties.TestingRun(t)
}

func TestInstID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC-USDT-SWAP"},
		{"btcusdt", "BTC-USDT-SWAP"},
		{"LINKUSDT", "LINK-USDT-SWAP"},
	}
	for _, tt := range tests {
		got, err := InstID(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("InstID(%s) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := InstID("USDT"); err == nil {
		t.Errorf("过短的交易对应返回错误")
	}

	if got := CanonSymbol("LINK-USDT-SWAP"); got != "LINKUSDT" {
		t.Errorf("CanonSymbol = %s", got)
	}
	if got := CanonSymbol("BTC"); got != "" {
		t.Errorf("CanonSymbol(BTC) = %s, want empty", got)
	}
}

func TestDecoder_NonDataFrames(t *testing.T) {
	for _, raw := range []string{
		`pong`,
		`{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USDT-SWAP"},"connId":"a4d3ae55"}`,
		`{"arg":{"channel":"books5","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP"}]}`,
	} {
		ticks, err := Decoder{}.Decode([]byte(raw))
		if err != nil || len(ticks) != 0 {
			t.Errorf("%s: ticks=%v err=%v", raw, ticks, err)
		}
	}
}

func TestDecoder_Errors(t *testing.T) {
	for _, raw := range []string{
		`{"event":"error","code":"60012","msg":"Invalid request"}`,
		`not json`,
		`{"foo":1}`,
		`{"arg":{"channel":"tickers","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP"}]}`,
	} {
		if _, err := (Decoder{}).Decode([]byte(raw)); err == nil {
			t.Errorf("应返回错误: %s", raw)
		}
	}
}

func TestVenue_SubscribeFrames(t *testing.T) {
	v := NewVenue()
	frames, err := v.SubscribeFrames([]string{"BTCUSDT", "ETHUSDT"})
	if err != nil || len(frames) != 1 {
		t.Fatalf("frames=%v err=%v", frames, err)
	}

	var req SubscribeRequest
	if err := json.Unmarshal(frames[0], &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Op != "subscribe" || len(req.Args) != 2 {
		t.Fatalf("req = %+v", req)
	}
	if req.Args[1] != (SubscribeArg{Channel: "tickers", InstId: "ETH-USDT-SWAP"}) {
		t.Fatalf("args[1] = %+v", req.Args[1])
	}
	if string(v.Heartbeat()) != "ping" {
		t.Fatalf("Heartbeat = %s", v.Heartbeat())
	}
}
