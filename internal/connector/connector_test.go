package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
)

type fakeControl struct {
	mu  sync.Mutex
	sel model.RoutingSelection
	err error
}

func (f *fakeControl) Selection(context.Context) (model.RoutingSelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.RoutingSelection{}, f.err
	}
	return f.sel.Clone(), nil
}

func (f *fakeControl) set(sel model.RoutingSelection) {
	f.mu.Lock()
	f.sel = sel
	f.mu.Unlock()
}

func (f *fakeControl) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakePublisher struct {
	ch chan model.Tick
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{ch: make(chan model.Tick, 100)}
}

// Publish 缓冲满时丢弃，避免阻塞读取循环
func (p *fakePublisher) Publish(_ context.Context, t model.Tick) error {
	select {
	case p.ch <- t:
	default:
	}
	return nil
}

// testVenue 测试交易所：帧格式 {"s":"BTCUSDT","p":100}
type testVenue struct {
	name    string
	decodes int64
}

type testFrame struct {
	S string  `json:"s"`
	P float64 `json:"p"`
}

func (v *testVenue) Name() string { return v.name }

func (v *testVenue) Endpoint(baseURL string, _ []string) (string, error) { return baseURL, nil }

func (v *testVenue) SubscribeFrames(symbols []string) ([][]byte, error) {
	b, err := json.Marshal(map[string]any{"subscribe": symbols})
	return [][]byte{b}, err
}

func (v *testVenue) Heartbeat() []byte { return []byte("ping") }

func (v *testVenue) NewDecoder() Decoder { return v }

func (v *testVenue) Decode(raw []byte) ([]model.Tick, error) {
	atomic.AddInt64(&v.decodes, 1)
	if string(raw) == "pong" {
		return nil, nil
	}
	var f testFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return []model.Tick{{Exchange: v.name, Symbol: f.S, Price: f.P}}, nil
}

func selection(a, b string, symbols ...string) model.RoutingSelection {
	return model.RoutingSelection{ExchangeA: a, ExchangeB: b, Symbols: symbols}
}

func testOptions(url string) Options {
	return Options{
		URL:            url,
		ReconnectDelay: 50 * time.Millisecond,
		IdleInterval:   10 * time.Millisecond,
		PingInterval:   20 * time.Millisecond,
	}
}

func newTestConnector(t *testing.T, ctrl *fakeControl, pub Publisher, url string) (*Connector, *testVenue) {
	t.Helper()
	v := &testVenue{name: "A"}
	c, err := New(v, ctrl, pub, testOptions(url), zap.NewNop())
	require.NoError(t, err)
	return c, v
}

func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestShouldRun_InactiveClearsSymbols_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	exchanges := gen.OneConstOf("A", "B", "C", "")

	properties.Property("非 A/B 侧时交易对必为空，活跃时与选择一致", prop.ForAll(
		func(as, bs []string) bool {
			ctrl := &fakeControl{}
			c, _ := newTestConnector(t, ctrl, newFakePublisher(), "ws://127.0.0.1:1")
			n := len(as)
			if len(bs) < n {
				n = len(bs)
			}
			for i := 0; i < n; i++ {
				sel := selection(as[i], bs[i], "BTCUSDT", "ETHUSDT")
				ctrl.set(sel)
				active := c.ShouldRun(context.Background())
				st := c.State()

				involved := as[i] == "A" || bs[i] == "A"
				if active != involved || st.Active != involved {
					return false
				}
				if !involved && len(st.Symbols) != 0 {
					return false
				}
				if involved && !symbolsEqual(st.Symbols, sel.Symbols) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, exchanges),
		gen.SliceOfN(20, exchanges),
	))

	properties.TestingRun(t)
}

func TestShouldRun_ReadErrorKeepsState(t *testing.T) {
	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	c, _ := newTestConnector(t, ctrl, newFakePublisher(), "ws://127.0.0.1:1")

	require.True(t, c.ShouldRun(context.Background()))
	ctrl.fail(errors.New("redis down"))

	assert.True(t, c.ShouldRun(context.Background()))
	assert.Equal(t, []string{"BTCUSDT"}, c.State().Symbols)
}

func TestShouldRun_InitialSymbolsUntilFirstRead(t *testing.T) {
	ctrl := &fakeControl{err: errors.New("redis down")}
	v := &testVenue{name: "A"}
	opts := testOptions("ws://127.0.0.1:1")
	opts.InitialSymbols = []string{"BTCUSDT"}
	c, err := New(v, ctrl, newFakePublisher(), opts, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, c.ShouldRun(context.Background()))
	assert.Equal(t, []string{"BTCUSDT"}, c.State().Symbols)

	// 控制存储恢复后以其为准
	ctrl.set(selection("B", "C", "BTCUSDT"))
	ctrl.fail(nil)
	assert.False(t, c.ShouldRun(context.Background()))
	assert.Empty(t, c.State().Symbols)
}

func TestOnFrame_ReconfigurationClosesWithoutDecoding(t *testing.T) {
	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	pub := newFakePublisher()
	c, v := newTestConnector(t, ctrl, pub, "ws://127.0.0.1:1")
	ctx := context.Background()
	require.True(t, c.ShouldRun(ctx))

	frame := []byte(`{"s":"BTCUSDT","p":100}`)
	require.NoError(t, c.OnFrame(ctx, v, frame))
	assert.EqualValues(t, 1, atomic.LoadInt64(&v.decodes))

	ctrl.set(selection("A", "B", "ETHUSDT"))
	err := c.OnFrame(ctx, v, frame)
	assert.ErrorIs(t, err, ErrReconfigured)
	assert.EqualValues(t, 1, atomic.LoadInt64(&v.decodes), "变化后的帧不应被解码")
	assert.EqualValues(t, 1, c.Metrics().ReconfigureCount)
}

func TestOnFrame_ControlReadErrorMeansNoChange(t *testing.T) {
	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	pub := newFakePublisher()
	c, v := newTestConnector(t, ctrl, pub, "ws://127.0.0.1:1")
	ctx := context.Background()
	require.True(t, c.ShouldRun(ctx))

	ctrl.fail(errors.New("timeout"))
	require.NoError(t, c.OnFrame(ctx, v, []byte(`{"s":"BTCUSDT","p":101}`)))

	tick := <-pub.ch
	assert.Equal(t, 101.0, tick.Price)
	assert.NotZero(t, tick.ObservedAtUnixNs)
}

func TestOnFrame_DecodeErrorSkipped(t *testing.T) {
	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	c, v := newTestConnector(t, ctrl, newFakePublisher(), "ws://127.0.0.1:1")
	ctx := context.Background()
	require.True(t, c.ShouldRun(ctx))

	for i := 0; i < 3; i++ {
		assert.NoError(t, c.OnFrame(ctx, v, []byte("{broken")))
	}
	assert.EqualValues(t, 3, c.Metrics().DecodeErrorCount)
	assert.Zero(t, c.Metrics().TicksPublished)
}

func TestRunOnce_IdleWithoutSymbols(t *testing.T) {
	ctrl := &fakeControl{sel: selection("C", "D", "BTCUSDT")}
	c, _ := newTestConnector(t, ctrl, newFakePublisher(), "ws://127.0.0.1:1")

	require.False(t, c.ShouldRun(context.Background()))
	start := time.Now()
	assert.NoError(t, c.RunOnce(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunOnce_DialError(t *testing.T) {
	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	c, _ := newTestConnector(t, ctrl, newFakePublisher(), "ws://127.0.0.1:1")

	require.True(t, c.ShouldRun(context.Background()))
	assert.Error(t, c.RunOnce(context.Background()))
}

func TestStart_PublishesAndReconfigures(t *testing.T) {
	subs := make(chan string, 10)
	url := newWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subs <- string(msg)
		for {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"BTCUSDT","p":100}`)); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	})

	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	pub := newFakePublisher()
	c, _ := newTestConnector(t, ctrl, pub, url)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	assert.JSONEq(t, `{"subscribe":["BTCUSDT"]}`, <-subs)
	tick := <-pub.ch
	assert.Equal(t, model.Tick{Exchange: "A", Symbol: "BTCUSDT", Price: 100, ObservedAtUnixNs: tick.ObservedAtUnixNs}, tick)

	// 本交易所不再被选中：下一帧触发断开，之后保持空闲
	ctrl.set(selection("C", "B", "BTCUSDT"))
	require.Eventually(t, func() bool {
		m := c.Metrics()
		return m.ReconfigureCount == 1 && !m.Connected && !m.Active
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, c.State().Symbols)

	// 重新选中后以新的交易对重连
	ctrl.set(selection("B", "A", "ETHUSDT"))
	assert.JSONEq(t, `{"subscribe":["ETHUSDT"]}`, <-subs)

	c.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop 后 Start 未退出")
	}
}

func TestStart_ReconnectsAfterRemoteClose(t *testing.T) {
	var conns int32
	url := newWSServer(t, func(conn *websocket.Conn) {
		atomic.AddInt32(&conns, 1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"BTCUSDT","p":100}`))
		// 返回即关闭连接
	})

	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	c, _ := newTestConnector(t, ctrl, newFakePublisher(), url)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&conns) >= 3
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, c.Metrics().ReconnectCount, int64(2))

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("ctx 取消后 Start 未退出")
	}
}

func TestStop_UnblocksRead(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		// 只读不写，客户端阻塞在 ReadMessage
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctrl := &fakeControl{sel: selection("A", "B", "BTCUSDT")}
	c, _ := newTestConnector(t, ctrl, newFakePublisher(), url)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return c.Metrics().Connected }, 5*time.Second, 10*time.Millisecond)
	c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop 未能解除阻塞读取")
	}
	assert.False(t, c.Metrics().Connected)
}

func TestNew_InvalidProxy(t *testing.T) {
	opts := testOptions("ws://127.0.0.1:1")
	opts.ProxyURL = "://bad"
	_, err := New(&testVenue{name: "A"}, &fakeControl{}, newFakePublisher(), opts, zap.NewNop())
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Connectors.ProxyURL = "http://proxy:8080"
	opts := OptionsFromConfig(cfg, model.ExchangeOKX)

	assert.Equal(t, 5*time.Second, opts.ReconnectDelay)
	assert.Equal(t, time.Second, opts.IdleInterval)
	assert.Equal(t, "http://proxy:8080", opts.ProxyURL)
	assert.NotEmpty(t, opts.URL)
	assert.Equal(t, 20*time.Second, opts.PingInterval)
}
