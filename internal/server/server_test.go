package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/app"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/storage"
)

type stubFetcher struct {
	prices domain.PriceSnapshot
}

func (f *stubFetcher) FetchPrices(ctx context.Context) (domain.PriceSnapshot, error) {
	return f.prices.Clone(), nil
}

func newTestServer(t *testing.T, start bool) (*Server, *httptest.Server, *app.Refresher) {
	t.Helper()

	fetcher := &stubFetcher{prices: domain.PriceSnapshot{
		domain.BTC: decimal.RequireFromString("60000"),
		domain.LTC: decimal.RequireFromString("80"),
		domain.XMR: decimal.RequireFromString("160"),
	}}
	refresher := app.NewRefresher(fetcher, storage.NewMemoryStore(), time.Hour)

	if start {
		ctx, cancel := context.WithCancel(context.Background())
		if err := refresher.Start(ctx); err != nil {
			t.Fatalf("Start refresher: %v", err)
		}
		t.Cleanup(func() {
			cancel()
			refresher.Stop()
		})
	}

	srv := New("localhost:0", refresher)
	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(ts.Close)

	return srv, ts, refresher
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestServer_InputAndConvert(t *testing.T) {
	_, ts, _ := newTestServer(t, true)

	// Wait for the initial fetch so prices are present.
	time.Sleep(100 * time.Millisecond)

	resp := postJSON(t, ts.URL+"/api/v1/input", inputRequest{Field: domain.BTC, Text: "0.5"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result resultPayload
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.USD != "30000.00" {
		t.Errorf("USD = %s, want 30000.00", result.USD)
	}
	if result.Outputs[domain.BYN] != "99000.00" {
		t.Errorf("BYN = %s, want 99000.00", result.Outputs[domain.BYN])
	}
}

func TestServer_InputClearsPreviousField(t *testing.T) {
	_, ts, _ := newTestServer(t, true)

	postJSON(t, ts.URL+"/api/v1/input", inputRequest{Field: domain.BTC, Text: "1"}).Body.Close()
	postJSON(t, ts.URL+"/api/v1/input", inputRequest{Field: domain.RUB, Text: "5000"}).Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()

	var state statePayload
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.ActiveField != domain.RUB || state.ActiveText != "5000" {
		t.Errorf("active = (%s, %q), want (RUB, 5000)", state.ActiveField, state.ActiveText)
	}
}

func TestServer_InputRejectsUnknownField(t *testing.T) {
	_, ts, _ := newTestServer(t, false)

	resp := postJSON(t, ts.URL+"/api/v1/input", inputRequest{Field: "EUR", Text: "1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_SaveRates(t *testing.T) {
	_, ts, refresher := newTestServer(t, false)

	t.Run("valid save applies", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rates",
			strings.NewReader(`{"byn_per_usd":"3.01","rub_per_usd":"78.0","markup":"1.05"}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT rates: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if !refresher.Rates().BynPerUsd.Equal(decimal.RequireFromString("3.01")) {
			t.Error("rates not applied")
		}
	})

	t.Run("invalid save rejected, prior kept", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rates",
			strings.NewReader(`{"byn_per_usd":"-1","rub_per_usd":"78.0","markup":"1.05"}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT rates: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if !refresher.Rates().BynPerUsd.Equal(decimal.RequireFromString("3.01")) {
			t.Error("rejected save changed the rates")
		}
	})

	t.Run("comma decimal separator accepted", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rates",
			strings.NewReader(`{"byn_per_usd":"3,25","rub_per_usd":"90","markup":"1.1"}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT rates: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if !refresher.Rates().BynPerUsd.Equal(decimal.RequireFromString("3.25")) {
			t.Error("comma value not parsed")
		}
	})
}

func TestServer_StateWithoutPrices(t *testing.T) {
	_, ts, _ := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/api/v1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()

	var state statePayload
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Prices[domain.BTC] != domain.Placeholder {
		t.Errorf("BTC price label = %q, want placeholder", state.Prices[domain.BTC])
	}
	if state.HasElapsed {
		t.Error("no fetch has happened, elapsed should be absent")
	}
	if state.ElapsedLabel != "rates not updated yet" {
		t.Errorf("elapsed label = %q", state.ElapsedLabel)
	}
}

func TestServer_RefreshRateLimit(t *testing.T) {
	_, ts, _ := newTestServer(t, true)

	var limited int
	for i := 0; i < 10; i++ {
		resp := postJSON(t, ts.URL+"/api/v1/refresh", struct{}{})
		switch resp.StatusCode {
		case http.StatusAccepted, http.StatusConflict:
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	if limited == 0 {
		t.Error("hammering refresh should hit the rate limit")
	}
}

func TestServer_WebSocketStreamsUpdates(t *testing.T) {
	_, ts, _ := newTestServer(t, true)

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	// Kick a refresh so an update arrives promptly.
	postJSON(t, ts.URL+"/api/v1/refresh", struct{}{}).Body.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var u app.Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("read ws update: %v", err)
		}
		if u.Kind == app.PricesUpdated {
			if _, ok := u.Prices.Price(domain.BTC); !ok {
				t.Error("prices update missing BTC")
			}
			return
		}
	}
}
