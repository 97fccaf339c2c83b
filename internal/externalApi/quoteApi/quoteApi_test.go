package quoteApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *QuoteApi {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.QuoteApi.Url = server.URL
	cfg.API.QuoteApi.Token = "test-token"

	return New(cfg)
}

func TestGetQuote(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/AAPL/quote", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"aapl","companyName":"Apple Inc","latestPrice":150.25}`))
	})

	quote, err := api.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "Apple Inc", quote.Shortname)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("150.25")), "got %s", quote.Price)
}

func TestGetQuoteNotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := api.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetQuoteServerError(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := api.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, externalApi.ErrUnavailable)
}

func TestGetQuoteMissingPrice(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc"}`))
	})

	_, err := api.GetQuote(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestGetQuotes(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/market/batch", r.URL.Path)
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		assert.Equal(t, "quote", r.URL.Query().Get("types"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"AAPL": {"quote": {"symbol":"AAPL","companyName":"Apple Inc","latestPrice":150.25}},
			"MSFT": {"quote": {"symbol":"MSFT","companyName":"Microsoft Corp","latestPrice":300.5}}
		}`))
	})

	quotes, err := api.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.True(t, quotes["AAPL"].Price.Equal(decimal.RequireFromString("150.25")))
	assert.True(t, quotes["MSFT"].Price.Equal(decimal.RequireFromString("300.5")))
}

func TestGetQuotesUnavailable(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := api.GetQuotes(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, externalApi.ErrUnavailable)
}
