// Package bybit Bybit 解码器测试
package bybit

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

func TestDecoder_CarryForward_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("delta 缺少 lastPrice 时沿用上一笔价格", prop.ForAll(
		func(px float64, deltas int) bool {
			d := NewDecoder()
			pxStr := fmt.Sprintf("%.1f", px)
			want, _ := strconv.ParseFloat(pxStr, 64)

			snap := fmt.Sprintf(`{"topic":"tickers.BTCUSDT","type":"snapshot","data":{"symbol":"BTCUSDT","lastPrice":"%s"}}`, pxStr)
			ticks, err := d.Decode([]byte(snap))
			if err != nil || len(ticks) != 1 || ticks[0].Price != want {
				return false
			}

			for i := 0; i < deltas; i++ {
				ticks, err = d.Decode([]byte(`{"topic":"tickers.BTCUSDT","type":"delta","data":{"symbol":"BTCUSDT","bid1Price":"1"}}`))
				if err != nil || len(ticks) != 1 || ticks[0].Price != want || ticks[0].Exchange != model.ExchangeBybit {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 200000),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestDecoder_CarryForwardIsPerSymbol(t *testing.T) {
	d := NewDecoder()
	if _, err := d.Decode([]byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","data":{"symbol":"BTCUSDT","lastPrice":"42000"}}`)); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// ETHUSDT 从未有价格：不应借用 BTCUSDT 的价格
	ticks, err := d.Decode([]byte(`{"topic":"tickers.ETHUSDT","type":"delta","data":{"symbol":"ETHUSDT"}}`))
	if err != nil || len(ticks) != 0 {
		t.Fatalf("ticks=%v err=%v", ticks, err)
	}

	// 新连接的解码器不继承旧状态
	fresh := NewVenue().NewDecoder()
	ticks, err = fresh.Decode([]byte(`{"topic":"tickers.BTCUSDT","type":"delta","data":{"symbol":"BTCUSDT"}}`))
	if err != nil || len(ticks) != 0 {
		t.Fatalf("fresh decoder ticks=%v err=%v", ticks, err)
	}
}

func TestDecoder_SymbolFromTopic(t *testing.T) {
	ticks, err := NewDecoder().Decode([]byte(`{"topic":"tickers.SOLUSDT","type":"snapshot","data":{"lastPrice":"150.5"}}`))
	if err != nil || len(ticks) != 1 {
		t.Fatalf("ticks=%v err=%v", ticks, err)
	}
	if ticks[0].Symbol != "SOLUSDT" || ticks[0].Price != 150.5 {
		t.Fatalf("tick = %+v", ticks[0])
	}
}

func TestDecoder_Responses(t *testing.T) {
	d := NewDecoder()
	for _, raw := range []string{
		`{"success":true,"ret_msg":"pong","conn_id":"x","op":"ping"}`,
		`{"success":true,"ret_msg":"","conn_id":"x","req_id":"","op":"subscribe"}`,
	} {
		ticks, err := d.Decode([]byte(raw))
		if err != nil || len(ticks) != 0 {
			t.Errorf("%s: ticks=%v err=%v", raw, ticks, err)
		}
	}

	for _, raw := range []string{
		`{"success":false,"ret_msg":"error:handler not found","op":"subscribe"}`,
		`{"topic":"orderbook.50.BTCUSDT","data":{}}`,
		`garbage`,
	} {
		if _, err := d.Decode([]byte(raw)); err == nil {
			t.Errorf("应返回错误: %s", raw)
		}
	}
}

func TestVenue_Frames(t *testing.T) {
	v := NewVenue()
	frames, err := v.SubscribeFrames([]string{"btcusdt", "ETHUSDT"})
	if err != nil || len(frames) != 1 {
		t.Fatalf("frames=%v err=%v", frames, err)
	}
	var req Request
	if err := json.Unmarshal(frames[0], &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Op != "subscribe" || req.Args[0] != "tickers.BTCUSDT" || req.Args[1] != "tickers.ETHUSDT" {
		t.Fatalf("req = %+v", req)
	}
	if string(v.Heartbeat()) != `{"op":"ping"}` {
		t.Fatalf("Heartbeat = %s", v.Heartbeat())
	}
}
