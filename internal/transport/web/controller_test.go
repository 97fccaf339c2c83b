package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/internal/model"
	"github.com/KotFed0t/stock_trading_sim/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBrokerageService struct {
	buyErr     error
	sellErr    error
	quoteErr   error
	depositErr error
}

func (s *fakeBrokerageService) RegisterUser(_ context.Context, username, _ string) (int64, error) {
	if username == "taken" {
		return 0, service.ErrUsernameTaken
	}
	return 1, nil
}

func (s *fakeBrokerageService) AuthenticateUser(_ context.Context, username, password string) (int64, error) {
	if username == "alice" && password == "s3cret" {
		return 1, nil
	}
	return 0, service.ErrInvalidCredentials
}

func (s *fakeBrokerageService) GetQuote(_ context.Context, symbol string) (model.Quote, error) {
	if s.quoteErr != nil {
		return model.Quote{}, s.quoteErr
	}
	return model.Quote{Symbol: strings.ToUpper(symbol), Shortname: "Apple Inc", Price: decimal.RequireFromString("150.00")}, nil
}

func (s *fakeBrokerageService) GetPortfolio(_ context.Context, _ int64) (model.Portfolio, error) {
	cash := decimal.RequireFromString("8500.00")
	return model.Portfolio{
		Positions: []model.Position{{
			Symbol:     "AAPL",
			Shortname:  "Apple Inc",
			Quantity:   10,
			Price:      decimal.RequireFromString("150.00"),
			TotalPrice: decimal.RequireFromString("1500.00"),
		}},
		Cash:       cash,
		TotalValue: decimal.RequireFromString("10000.00"),
	}, nil
}

func (s *fakeBrokerageService) Buy(_ context.Context, _ int64, _ string, _ int) error {
	return s.buyErr
}

func (s *fakeBrokerageService) Sell(_ context.Context, _ int64, _ string, _ int) error {
	return s.sellErr
}

func (s *fakeBrokerageService) DepositCash(_ context.Context, _ int64, _ decimal.Decimal) error {
	return s.depositErr
}

func (s *fakeBrokerageService) GetHistory(_ context.Context, _ int64) ([]model.Trade, error) {
	return []model.Trade{{
		Symbol:     "AAPL",
		Shortname:  "Apple Inc",
		Quantity:   10,
		Price:      decimal.RequireFromString("150.00"),
		TotalPrice: decimal.RequireFromString("1500.00"),
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}, nil
}

func (s *fakeBrokerageService) ExportHistory(_ context.Context, _ int64) ([]byte, string, error) {
	return []byte("xlsx-bytes"), ".xlsx", nil
}

type fakeSession struct {
	tokens map[string]int64
}

func newFakeSession() *fakeSession {
	return &fakeSession{tokens: make(map[string]int64)}
}

func (s *fakeSession) CreateSession(_ context.Context, userID int64) (string, error) {
	token := "tok-1"
	s.tokens[token] = userID
	return token, nil
}

func (s *fakeSession) GetSession(_ context.Context, token string) (int64, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return 0, errors.New("session not found")
	}
	return userID, nil
}

func (s *fakeSession) DeleteSession(_ context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func newTestServer(t *testing.T, srv *fakeBrokerageService) (*httptest.Server, *fakeSession) {
	t.Helper()

	cfg := &config.Config{SessionExpiration: time.Hour}
	session := newFakeSession()
	ctrl := NewController(cfg, srv, session)

	server := httptest.NewServer(NewRouter(ctrl, session))
	t.Cleanup(server.Close)

	return server, session
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func authCookie(t *testing.T, session *fakeSession) *http.Cookie {
	t.Helper()
	token, err := session.CreateSession(context.Background(), 1)
	require.NoError(t, err)
	return &http.Cookie{Name: "session_id", Value: token}
}

func doAuthenticated(t *testing.T, server *httptest.Server, session *fakeSession, method, path string, form url.Values) *http.Response {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequest(method, server.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.AddCookie(authCookie(t, session))

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	resp, err := noRedirectClient().Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginFlow(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"username": {"alice"}, "password": {"s3cret"}}
	resp, err := noRedirectClient().PostForm(server.URL+"/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestLoginInvalidCredentials(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	resp, err := noRedirectClient().PostForm(server.URL+"/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "invalid username and/or password")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"username": {"bob"}, "password": {"one"}, "confirm-password": {"two"}}
	resp, err := noRedirectClient().PostForm(server.URL+"/register", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "passwords don")
}

func TestRegisterUsernameTaken(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"username": {"taken"}, "password": {"pw"}, "confirm-password": {"pw"}}
	resp, err := noRedirectClient().PostForm(server.URL+"/register", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "username already taken")
}

func TestIndexShowsPortfolio(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{})

	resp := doAuthenticated(t, server, session, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "AAPL")
	assert.Contains(t, body, "$8500.00")
	assert.Contains(t, body, "$10000.00")
}

func TestProcessBuyRedirects(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"symbol": {"AAPL"}, "amount": {"10"}}
	resp := doAuthenticated(t, server, session, http.MethodPost, "/buy", form)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestProcessBuyInvalidQuantity(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{})

	form := url.Values{"symbol": {"AAPL"}, "amount": {"ten"}}
	resp := doAuthenticated(t, server, session, http.MethodPost, "/buy", form)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "positive integer")
}

func TestProcessBuyInsufficientFunds(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{buyErr: service.ErrInsufficientFunds})

	form := url.Values{"symbol": {"AAPL"}, "amount": {"100"}}
	resp := doAuthenticated(t, server, session, http.MethodPost, "/buy", form)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "insufficient funds")
}

func TestProcessQuoteUnknownSymbol(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{quoteErr: service.ErrSymbolNotFound})

	form := url.Values{"symbol": {"NOPE"}}
	resp := doAuthenticated(t, server, session, http.MethodPost, "/quote", form)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "stock not found")
}

func TestProcessQuoteUnavailable(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{quoteErr: service.ErrQuoteUnavailable})

	form := url.Values{"symbol": {"AAPL"}}
	resp := doAuthenticated(t, server, session, http.MethodPost, "/quote", form)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHistoryExport(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{})

	resp := doAuthenticated(t, server, session, http.MethodGet, "/history/export", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "history.xlsx")
	assert.Equal(t, "xlsx-bytes", readBody(t, resp))
}

func TestLogout(t *testing.T) {
	server, session := newTestServer(t, &fakeBrokerageService{})

	cookie := authCookie(t, session)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/logout", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, err = session.GetSession(context.Background(), cookie.Value)
	assert.Error(t, err)
}

func TestNoCacheHeaders(t *testing.T) {
	server, _ := newTestServer(t, &fakeBrokerageService{})

	resp, err := noRedirectClient().Get(server.URL + "/login")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
}
