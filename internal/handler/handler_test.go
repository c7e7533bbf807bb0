package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gamepay/internal/errno"
	"gamepay/internal/middleware"
	"gamepay/internal/model"
	"gamepay/internal/service"
	"gamepay/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrderService struct {
	CreateFn        func(req *model.CreateOrderRequest, uid string) (*model.Order, error)
	ConfirmFn       func(orderNo, uid string) (*model.Order, error)
	PollFn          func(orderNo, uid string) (*service.StatusView, error)
	PaymentStatusFn func(orderNo, uid string) (*service.PaymentView, error)
	MockFn          func(orderNo, uid string) (*model.Order, error)
	CallbackFn      func(p service.CallbackParams) (string, error)
}

func (f *fakeOrderService) Create(_ context.Context, req *model.CreateOrderRequest, uid string) (*model.Order, error) {
	return f.CreateFn(req, uid)
}

func (f *fakeOrderService) ConfirmReceipt(_ context.Context, orderNo, uid string) (*model.Order, error) {
	return f.ConfirmFn(orderNo, uid)
}

func (f *fakeOrderService) PollStatus(_ context.Context, orderNo, uid string) (*service.StatusView, error) {
	return f.PollFn(orderNo, uid)
}

func (f *fakeOrderService) PaymentStatus(_ context.Context, orderNo, uid string) (*service.PaymentView, error) {
	return f.PaymentStatusFn(orderNo, uid)
}

func (f *fakeOrderService) MockPayment(_ context.Context, orderNo, uid string) (*model.Order, error) {
	return f.MockFn(orderNo, uid)
}

func (f *fakeOrderService) ApplyCallback(_ context.Context, p service.CallbackParams) (string, error) {
	return f.CallbackFn(p)
}

func newTestRouter(svc *fakeOrderService, whitelist ...string) *gin.Engine {
	return NewRouter(RouterConfig{
		Orders:            svc,
		Callbacks:         svc,
		JWTSecret:         testSecret,
		CallbackWhitelist: whitelist,
	})
}

func token(t *testing.T, uid interface{}) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": uid,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func doJSON(r *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) util.Response {
	t.Helper()
	var resp util.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestCallbackSuccess(t *testing.T) {
	var got service.CallbackParams
	svc := &fakeOrderService{CallbackFn: func(p service.CallbackParams) (string, error) {
		got = p
		return service.CallbackSuccess, nil
	}}
	r := newTestRouter(svc)

	form := url.Values{"nt_data": {"@1@2"}, "sign": {"@3"}, "md5Sign": {"@4"}}
	req := httptest.NewRequest(http.MethodPost, "/api/pay/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "SUCCESS" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if got.NtData != "@1@2" || got.Sign != "@3" || got.Md5Sign != "@4" {
		t.Errorf("form fields not passed through: %+v", got)
	}
	if w.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("request id header missing")
	}
}

func TestCallbackFailureStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{errno.ErrAuthentication, http.StatusUnauthorized},
		{fmt.Errorf("%w: bad xml", errno.ErrMalformedPayload), http.StatusBadRequest},
		{fmt.Errorf("%w: x", errno.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: decode key", errno.ErrConfiguration), http.StatusInternalServerError},
		{fmt.Errorf("%w: refunded", errno.ErrStateConflict), http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &fakeOrderService{CallbackFn: func(service.CallbackParams) (string, error) { return "", tc.err }}
		r := newTestRouter(svc)
		req := httptest.NewRequest(http.MethodPost, "/api/pay/callback", strings.NewReader("nt_data=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.code || w.Body.String() != "FAILED" {
			t.Errorf("%v: got %d %q, want %d FAILED", tc.err, w.Code, w.Body.String(), tc.code)
		}
	}
}

func TestCallbackIPWhitelist(t *testing.T) {
	called := false
	svc := &fakeOrderService{CallbackFn: func(service.CallbackParams) (string, error) {
		called = true
		return service.CallbackSuccess, nil
	}}
	r := newTestRouter(svc, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodPost, "/api/pay/callback", nil)
	req.RemoteAddr = "192.168.1.2:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden || called {
		t.Fatalf("callback from foreign ip: got %d called=%v", w.Code, called)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/pay/callback", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !called {
		t.Fatalf("callback from whitelisted ip: got %d called=%v", w.Code, called)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotUID string
	svc := &fakeOrderService{CreateFn: func(req *model.CreateOrderRequest, uid string) (*model.Order, error) {
		gotUID = uid
		if req.ProductID != model.ProductCreateGuild || req.ExtrasParams["guildName"] != "Foo" {
			t.Errorf("unexpected request %+v", req)
		}
		return &model.Order{
			ID:        7,
			OrderNo:   "ord_1_u1_abcd",
			UID:       uid,
			ProductID: req.ProductID,
			Amount:    decimal.NewFromInt(18),
			Status:    model.OrderStatusPending,
		}, nil
	}}
	r := newTestRouter(svc)

	body := `{"productId":"CREATE_GUILD","serverName":"s1","extrasParams":{"guildName":"Foo"}}`
	w := doJSON(r, http.MethodPost, "/api/orders", token(t, 10086), body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if gotUID != "10086" {
		t.Errorf("numeric uid claim not resolved, got %q", gotUID)
	}
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	if resp.Code != util.CodeSuccess || data["orderNo"] != "ord_1_u1_abcd" || data["status"] != "PENDING" || data["orderId"] != float64(7) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := &fakeOrderService{CreateFn: func(*model.CreateOrderRequest, string) (*model.Order, error) {
		return nil, errno.NewValidationError([]string{"serverName is required", "extrasParams.guildName is required"})
	}}
	r := newTestRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/orders", token(t, "u1"), `{"productId":"CREATE_GUILD"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", w.Code)
	}
	resp := decodeResponse(t, w)
	errs := resp.Data.(map[string]interface{})["errors"].([]interface{})
	if resp.Code != util.CodeValidation || len(errs) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}

	// 缺少 productId 在绑定阶段就失败
	w = doJSON(r, http.MethodPost, "/api/orders", token(t, "u1"), `{}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing productId: status %d", w.Code)
	}
}

func TestOrderRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(&fakeOrderService{})

	if w := doJSON(r, http.MethodPost, "/api/orders", "", `{}`); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/orders/o1/poll", "Bearer garbage", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/orders/o1/poll", token(t, ""), ""); w.Code != http.StatusUnauthorized {
		t.Errorf("empty uid: status %d", w.Code)
	}
}

func TestOrderOperationsErrorMapping(t *testing.T) {
	svc := &fakeOrderService{
		ConfirmFn: func(orderNo, uid string) (*model.Order, error) {
			return nil, fmt.Errorf("%w: order %s is PENDING", errno.ErrStateConflict, orderNo)
		},
		PollFn: func(orderNo, uid string) (*service.StatusView, error) {
			return nil, fmt.Errorf("%w: %s", errno.ErrNotFound, orderNo)
		},
		MockFn: func(orderNo, uid string) (*model.Order, error) {
			return nil, errno.ErrMockDisabled
		},
		PaymentStatusFn: func(orderNo, uid string) (*service.PaymentView, error) {
			return &service.PaymentView{OrderNo: orderNo, Status: model.OrderStatusPaid, ChannelOrderNo: "GW1"}, nil
		},
	}
	r := newTestRouter(svc)
	auth := token(t, "u1")

	cases := []struct {
		method, path string
		status, code int
	}{
		{http.MethodPost, "/api/orders/o1/confirm", http.StatusConflict, util.CodeStateConflict},
		{http.MethodGet, "/api/orders/o1/poll", http.StatusNotFound, util.CodeNotFound},
		{http.MethodPost, "/api/orders/o1/mock-pay", http.StatusForbidden, util.CodeForbidden},
		{http.MethodGet, "/api/orders/o1/payment-status", http.StatusOK, util.CodeSuccess},
	}
	for _, tc := range cases {
		w := doJSON(r, tc.method, tc.path, auth, "")
		if w.Code != tc.status {
			t.Errorf("%s %s: status %d, want %d", tc.method, tc.path, w.Code, tc.status)
			continue
		}
		if resp := decodeResponse(t, w); resp.Code != tc.code {
			t.Errorf("%s %s: code %d, want %d", tc.method, tc.path, resp.Code, tc.code)
		}
	}
}

func TestProducts(t *testing.T) {
	r := newTestRouter(&fakeOrderService{})
	w := doJSON(r, http.MethodGet, "/api/products", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if list, ok := resp.Data.([]interface{}); !ok || len(list) != 4 {
		t.Fatalf("unexpected products %+v", resp.Data)
	}
}
