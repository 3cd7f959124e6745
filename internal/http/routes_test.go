package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"credit_engine/internal/config"
	"credit_engine/internal/domain"
	"credit_engine/internal/service"
	"credit_engine/internal/store/memory"
	"credit_engine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const adminID = int64(1)

type APISuite struct {
	suite.Suite
	store  *memory.Store
	eng    *service.Engine
	router *gin.Engine
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	service.InitJWT("api-secret")

	s.store = memory.New()
	s.eng = service.NewEngine(s.store, service.Options{})
	hub := ws.NewHub()
	s.eng.Wallet.SetNotifier(hub)

	cfg := &config.Config{
		Version:            "test",
		AdminUserIDs:       []int64{adminID},
		APIRateLimit:       10000,
		APIRateWindow:      time.Minute,
		ChargeRateLimit:    10000,
		ChargeRateWindow:   time.Minute,
		SignupBonusCredits: 0,
	}
	s.router = gin.New()
	RegisterRoutes(s.router, s.eng, hub, cfg)

	ctx := context.Background()
	s.Require().NoError(s.store.UpsertToolRule(ctx, &domain.ToolCostRule{
		ToolID: "summarize", Slug: "summarizer", BaseCostInCredits: 4, IsActive: true,
	}))
	s.Require().NoError(s.store.UpsertToolRule(ctx, &domain.ToolCostRule{
		ToolID: "agent", BaseCostInCredits: 10, IsProOnly: true, IsActive: true,
	}))
}

func (s *APISuite) do(method, path string, userID int64, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := service.GenerateJWT(userID, time.Minute)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (s *APISuite) fund(userID, amount int64) {
	code, _ := s.do(http.MethodPost, "/api/v1/admin/balance/adjust", adminID, gin.H{
		"user_id": userID, "amount": amount, "credit_type": "purchased", "reason": "test funding",
	})
	s.Require().Equal(http.StatusOK, code)
}

func (s *APISuite) TestHealth() {
	code, body := s.do(http.MethodGet, "/health", 0, nil)
	s.Equal(http.StatusOK, code)
	s.Equal("ok", body["status"])

	code, body = s.do(http.MethodGet, "/readyz", 0, nil)
	s.Equal(http.StatusOK, code)
	s.Equal("healthy", body["status"])
}

func (s *APISuite) TestRequiresToken() {
	code, body := s.do(http.MethodGet, "/api/v1/balance", 0, nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("unauthorized", body["error"])
}

func (s *APISuite) TestBalanceStartsEmpty() {
	code, body := s.do(http.MethodGet, "/api/v1/balance", 42, nil)
	s.Equal(http.StatusOK, code)
	s.EqualValues(0, body["available_credits"])
}

func (s *APISuite) TestChargeAndReverse() {
	s.fund(7, 10)

	code, body := s.do(http.MethodPost, "/api/v1/tools/quote", 7, gin.H{"tool_id": "summarizer"})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(4, body["cost_in_credits"])
	s.Equal("standard", body["access_type"])

	code, body = s.do(http.MethodPost, "/api/v1/tools/charge", 7, gin.H{"tool_id": "summarize"})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(4, body["cost"])
	entryID := int64(body["ledger_entry_id"].(float64))
	s.NotZero(entryID)

	// someone else cannot reverse it
	code, body = s.do(http.MethodPost, "/api/v1/ledger/"+strconv.FormatInt(entryID, 10)+"/reverse", 8, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal(domain.KindNotFound, body["error"])

	code, _ = s.do(http.MethodPost, "/api/v1/ledger/"+strconv.FormatInt(entryID, 10)+"/reverse", 7, nil)
	s.Require().Equal(http.StatusOK, code)

	code, body = s.do(http.MethodPost, "/api/v1/ledger/"+strconv.FormatInt(entryID, 10)+"/reverse", 7, nil)
	s.Equal(http.StatusConflict, code)
	s.Equal(domain.KindAlreadyReversed, body["error"])

	code, body = s.do(http.MethodGet, "/api/v1/balance", 7, nil)
	s.Equal(http.StatusOK, code)
	s.EqualValues(10, body["available_credits"])

	code, body = s.do(http.MethodGet, "/api/v1/history?type=reversal", 7, nil)
	s.Equal(http.StatusOK, code)
	s.EqualValues(1, body["total"])
}

func (s *APISuite) TestErrorKinds() {
	code, body := s.do(http.MethodPost, "/api/v1/tools/charge", 7, gin.H{"tool_id": "summarize"})
	s.Equal(http.StatusPaymentRequired, code)
	s.Equal(domain.KindInsufficientBalance, body["error"])
	s.NotEmpty(body["message"])

	code, body = s.do(http.MethodPost, "/api/v1/tools/quote", 7, gin.H{"tool_id": "agent"})
	s.Equal(http.StatusForbidden, code)
	s.Equal(domain.KindProRequired, body["error"])

	code, body = s.do(http.MethodPost, "/api/v1/tools/quote", 7, gin.H{"tool_id": "nope"})
	s.Equal(http.StatusNotFound, code)
	s.Equal(domain.KindToolNotFound, body["error"])

	code, body = s.do(http.MethodPost, "/api/v1/consume", 7, gin.H{"amount": -3})
	s.Equal(http.StatusBadRequest, code)
	s.Equal(domain.KindInvalidAmount, body["error"])

	code, body = s.do(http.MethodGet, "/api/v1/history?type=bogus", 7, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(domain.KindInvalidFilter, body["error"])

	code, body = s.do(http.MethodGet, "/api/v1/history?page=576460752303423489", 7, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(domain.KindInvalidFilter, body["error"])

	code, _ = s.do(http.MethodPost, "/api/v1/tools/quote", 7, gin.H{})
	s.Equal(http.StatusBadRequest, code)
}

func (s *APISuite) TestManualReversalNeedsAdmin() {
	s.Require().NoError(s.store.UpsertToolRule(context.Background(), &domain.ToolCostRule{
		ToolID: "render", BaseCostInCredits: 6, IsActive: true, ReversalPolicy: domain.ReversalManual,
	}))
	s.fund(7, 10)

	code, body := s.do(http.MethodPost, "/api/v1/tools/charge", 7, gin.H{"tool_id": "render"})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("manual", body["reversal_policy"])
	id := strconv.FormatInt(int64(body["ledger_entry_id"].(float64)), 10)

	code, body = s.do(http.MethodPost, "/api/v1/ledger/"+id+"/reverse", 7, nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal(domain.KindNotReversible, body["error"])

	code, _ = s.do(http.MethodPost, "/api/v1/admin/entries/"+id+"/reverse", 7, nil)
	s.Equal(http.StatusForbidden, code)

	code, body = s.do(http.MethodPost, "/api/v1/admin/entries/"+id+"/reverse", adminID, nil)
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(10, body["balance"].(map[string]any)["available_credits"])
}

func (s *APISuite) TestPromoFlow() {
	code, _ := s.do(http.MethodPost, "/api/v1/admin/promo", adminID, gin.H{
		"code": "launch", "type": "bonus_credits", "value": 15,
	})
	s.Require().Equal(http.StatusCreated, code)

	code, body := s.do(http.MethodPost, "/api/v1/promo/redeem", 7, gin.H{"code": "LAUNCH"})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(15, body["credits_added"])

	code, body = s.do(http.MethodPost, "/api/v1/promo/redeem", 7, gin.H{"code": "launch"})
	s.Equal(http.StatusConflict, code)
	s.Equal(domain.KindAlreadyRedeemed, body["error"])

	code, body = s.do(http.MethodGet, "/api/v1/admin/audit/7", adminID, nil)
	s.Equal(http.StatusOK, code)
	s.Len(body["logs"], 1)
}

func (s *APISuite) TestSubscriptionEndpoints() {
	code, body := s.do(http.MethodGet, "/api/v1/subscription", 7, nil)
	s.Equal(http.StatusOK, code)
	s.Equal(false, body["is_pro"])

	code, body = s.do(http.MethodPost, "/api/v1/subscription/cancel", 7, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal(domain.KindNotFound, body["error"])

	_, err := s.eng.Subscriptions.Activate(context.Background(), 7, "pro_monthly", time.Now().Add(72*time.Hour))
	s.Require().NoError(err)

	code, body = s.do(http.MethodPost, "/api/v1/subscription/cancel", 7, nil)
	s.Equal(http.StatusOK, code)

	code, body = s.do(http.MethodGet, "/api/v1/subscription", 7, nil)
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["is_pro"])
	s.EqualValues(3, body["days_remaining"])

	code, body = s.do(http.MethodPost, "/api/v1/admin/subscriptions/expire", adminID, nil)
	s.Equal(http.StatusOK, code)
	s.EqualValues(0, body["expired"])
}

func (s *APISuite) TestAdminRoutesNeedAdmin() {
	code, body := s.do(http.MethodGet, "/api/v1/admin/ledger/7/verify", 7, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal("forbidden", body["error"])

	s.fund(7, 5)
	code, body = s.do(http.MethodGet, "/api/v1/admin/ledger/7/verify", adminID, nil)
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["consistent"])
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func TestSignupBonusOnFirstBalance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("api-secret")

	eng := service.NewEngine(memory.New(), service.Options{})
	r := gin.New()
	RegisterRoutes(r, eng, ws.NewHub(), &config.Config{
		APIRateLimit: 10000, APIRateWindow: time.Minute,
		ChargeRateLimit: 10000, ChargeRateWindow: time.Minute,
		SignupBonusCredits: 25,
	})

	token, err := service.GenerateJWT(3, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"bonus_credits":25,"purchased_credits":0,"available_credits":25}`, w.Body.String())
	}
}
