package mockbackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
)

const testPhone = "9876543210"

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, logger.Discard())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

// doJSON sends body as JSON and decodes the response into a generic value.
func doJSON(t *testing.T, method, url, token string, body any) (int, any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func login(t *testing.T, ts *httptest.Server, captcha string) map[string]any {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"phone_number":    testPhone,
		"otp":             "1234",
		"recaptcha_token": captcha,
	})
	require.Equal(t, http.StatusOK, status, "login body: %v", body)
	return body.(map[string]any)
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	body := login(t, ts, "c1")

	assert.NotEmpty(t, body["access"])
	assert.NotEmpty(t, body["refresh"])
	user := body["user"].(map[string]any)
	assert.Equal(t, testPhone, user["phone_number"])
}

func TestLogin_OmitRefresh(t *testing.T) {
	_, ts := newTestServer(t, Config{OmitRefresh: true})

	body := login(t, ts, "c1")

	assert.NotEmpty(t, body["access"])
	assert.NotContains(t, body, "refresh")
}

func TestLogin_WrongOTP(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"phone_number":    testPhone,
		"otp":             "0000",
		"recaptcha_token": "c1",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "otp")
}

func TestSendOTP_CaptchaIsSingleUse(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	req := map[string]string{"phone_number": testPhone, "recaptcha_token": "same"}

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/send-otp", "", req)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/send-otp", "", req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "recaptcha_token")
}

func TestSendOTP_InvalidPhone(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/send-otp", "", map[string]string{
		"phone_number":    "12ab",
		"recaptcha_token": "c1",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "phone_number")
}

func TestProtectedRoutes_RequireBearer(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/ecom/address/", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", body.(map[string]any)["code"])
}

func TestExpireAndRefresh(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	tokens := login(t, ts, "c1")
	access := tokens["access"].(string)

	s.ExpireAccessTokens()
	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/ecom/address/", access, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token_not_valid", body.(map[string]any)["code"])

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/auth/refresh", "", map[string]any{"refresh": tokens["refresh"]})
	require.Equal(t, http.StatusOK, status)
	fresh := body.(map[string]any)["access"].(string)
	assert.Equal(t, 1, s.RefreshCalls())

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/ecom/address/", fresh, nil)
	assert.Equal(t, http.StatusOK, status)

	s.RevokeRefreshTokens()
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/auth/refresh", "", map[string]any{"refresh": tokens["refresh"]})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func validAddress(name string) map[string]any {
	return map[string]any{
		"name":          name,
		"phone":         testPhone,
		"address_line1": "12 MG Road",
		"city":          "Bengaluru",
		"state":         "Karnataka",
		"pincode":       "560001",
	}
}

func TestAddresses_CRUD(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	access := login(t, ts, "c1")["access"].(string)
	base := ts.URL + "/api/ecom/address/"

	status, first := doJSON(t, http.MethodPost, base, access, validAddress("Home"))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, first.(map[string]any)["is_default"], "first address becomes the default")

	second := validAddress("Office")
	second["is_default"] = true
	status, created := doJSON(t, http.MethodPost, base, access, second)
	require.Equal(t, http.StatusCreated, status)
	secondID := created.(map[string]any)["id"]

	_, list := doJSON(t, http.MethodGet, base, access, nil)
	items := list.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, false, items[0].(map[string]any)["is_default"])
	assert.Equal(t, true, items[1].(map[string]any)["is_default"])

	status, patched := doJSON(t, http.MethodPatch, base+jsonID(secondID)+"/", access, map[string]any{"city": "Mysuru"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mysuru", patched.(map[string]any)["city"])
	assert.Equal(t, "Office", patched.(map[string]any)["name"])

	status, _ = doJSON(t, http.MethodDelete, base+jsonID(secondID)+"/", access, nil)
	assert.Equal(t, http.StatusNoContent, status)

	_, list = doJSON(t, http.MethodGet, base, access, nil)
	items = list.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]any)["is_default"], "default moves to the remaining address")

	status, _ = doJSON(t, http.MethodGet, base+"9999/", access, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAddresses_Validation(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	access := login(t, ts, "c1")["access"].(string)

	bad := validAddress("Home")
	bad["pincode"] = "12"
	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/ecom/address/", access, bad)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "pincode")
}

func TestWishlist_AddIsIdempotentAndDeleteByProduct(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	access := login(t, ts, "c1")["access"].(string)
	base := ts.URL + "/api/ecom/wishlist/"

	status, item := doJSON(t, http.MethodPost, base, access, map[string]any{"product": 42})
	require.Equal(t, http.StatusCreated, status)
	product := item.(map[string]any)["product"].(map[string]any)
	assert.Equal(t, "Block Print Dupatta", product["name"])

	status, _ = doJSON(t, http.MethodPost, base, access, map[string]any{"product": "42"})
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, s.Wishlist(testPhone), 1)

	status, _ = doJSON(t, http.MethodDelete, base+"42/", access, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, s.Wishlist(testPhone))

	status, _ = doJSON(t, http.MethodDelete, base+"42/", access, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWishlist_Disabled(t *testing.T) {
	s, ts := newTestServer(t, Config{DisableWishlist: true})
	access := login(t, ts, "c1")["access"].(string)

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/ecom/wishlist/", access, nil)
	assert.Equal(t, http.StatusNotFound, status)

	s.SetWishlistEnabled(true)
	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/ecom/wishlist/", access, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body)
}

func TestOrders_CreateAndList(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	access := login(t, ts, "c1")["access"].(string)
	_, addr := doJSON(t, http.MethodPost, ts.URL+"/api/ecom/address/", access, validAddress("Home"))
	addrID := addr.(map[string]any)["id"]
	base := ts.URL + "/api/ecom/orders/"

	status, body := doJSON(t, http.MethodPost, base, access, map[string]any{
		"address": 9999,
		"items":   []any{},
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "address")
	assert.Contains(t, body, "items")

	status, order := doJSON(t, http.MethodPost, base, access, map[string]any{
		"address": addrID,
		"items": []map[string]any{
			{"product": 1, "size": "M", "quantity": 2, "price": "25.50"},
		},
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", order)
	created := order.(map[string]any)
	assert.Equal(t, "pending", created["status"])
	assert.InDelta(t, 51.0, created["total_amount"], 0.001)

	_, list := doJSON(t, http.MethodGet, base, access, nil)
	page := list.(map[string]any)
	assert.EqualValues(t, 1, page["count"])

	status, _ = doJSON(t, http.MethodGet, base+jsonID(created["id"])+"/", access, nil)
	assert.Equal(t, http.StatusOK, status)
}

// jsonID renders an id decoded from JSON (a float64 for numbers) as a path segment.
func jsonID(v any) string {
	b, _ := json.Marshal(v)
	return string(bytes.Trim(b, `"`))
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := doJSON(t, http.MethodGet, ts.URL+"/health/ready", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body.(map[string]any)["status"])
}
