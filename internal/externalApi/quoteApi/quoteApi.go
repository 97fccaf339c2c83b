package quoteApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/internal/externalApi"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// QuoteApi is a client for the external quote provider (IEX-style REST API).
type QuoteApi struct {
	client *resty.Client
	token  string
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client, token: cfg.API.QuoteApi.Token}
}

type rawQuote struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	LatestPrice *float64 `json:"latestPrice"`
}

func (a *QuoteApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/stable/stock/%s/quote", symbol)

	slog.Debug("start QuoteApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParam("token", a.token).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, externalApi.ErrUnavailable
	}

	if resp.StatusCode() == http.StatusNotFound {
		return model.Quote{}, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("QuoteApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return model.Quote{}, externalApi.ErrUnavailable
	}

	raw := rawQuote{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into rawQuote", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	quote, err := a.parseRawQuote(raw)
	if err != nil {
		slog.Error("can't parse raw quote", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	slog.Debug("QuoteApi.GetQuote request complete", slog.String("rqID", rqID))

	return quote, nil
}

// GetQuotes fetches quotes for several symbols in one batch request. Symbols
// unknown to the provider are silently absent from the result map.
func (a *QuoteApi) GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/stable/stock/market/batch"

	slog.Debug("start QuoteApi.GetQuotes request", slog.String("rqID", rqID), slog.Any("symbols", symbols))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"symbols": strings.Join(symbols, ","),
			"types":   "quote",
			"token":   a.token,
		}).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	if resp.IsError() {
		slog.Error("QuoteApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	rawBatch := map[string]struct {
		Quote rawQuote `json:"quote"`
	}{}
	err = json.Unmarshal(resp.Body(), &rawBatch)
	if err != nil {
		slog.Error("can't unmarshall batch response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	quotes := make(map[string]model.Quote, len(rawBatch))
	for _, entry := range rawBatch {
		quote, err := a.parseRawQuote(entry.Quote)
		if err != nil {
			slog.Error("can't parse raw quote in batch", slog.String("err", err.Error()), slog.String("rqID", rqID))
			return nil, err
		}
		quotes[quote.Symbol] = quote
	}

	slog.Debug("QuoteApi.GetQuotes request complete", slog.String("rqID", rqID))

	return quotes, nil
}

func (a *QuoteApi) parseRawQuote(raw rawQuote) (model.Quote, error) {
	if raw.Symbol == "" {
		return model.Quote{}, fmt.Errorf("empty symbol in quote response")
	}

	if raw.LatestPrice == nil {
		return model.Quote{}, fmt.Errorf("no price for symbol %s", raw.Symbol)
	}

	price := decimal.NewFromFloat(*raw.LatestPrice)
	if !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("non-positive price %s for symbol %s", price, raw.Symbol)
	}

	return model.Quote{
		Symbol:    strings.ToUpper(raw.Symbol),
		Shortname: raw.CompanyName,
		Price:     price,
	}, nil
}
