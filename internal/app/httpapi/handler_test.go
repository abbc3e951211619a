package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	app "github.com/frogworks/storefront/internal/app"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage/memory"
	"github.com/frogworks/storefront/internal/filestore"
)

type testEnv struct {
	t       *testing.T
	store   *memory.Store
	app     *app.Application
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	files, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	application, err := app.New(app.Options{
		Store:          store,
		Files:          files,
		SessionMaxIdle: -1,
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	return &testEnv{
		t:       t,
		store:   store,
		app:     application,
		handler: NewHandler(application, nil),
	}
}

func (e *testEnv) post(path, token string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) get(path, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) do(method, path, token string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
}

// registerAndLogin creates a verified account through the API and returns its
// session token and profile.
func (e *testEnv) registerAndLogin(username string) (string, map[string]any) {
	e.t.Helper()
	address := username + "@example.com"
	if _, err := e.store.ReplaceEmailVerification(context.Background(), user.EmailVerification{
		Email: address,
		Code:  424242,
	}); err != nil {
		e.t.Fatalf("seed verification: %v", err)
	}

	resp := e.post("/api/accounts", "", url.Values{
		"username": {username},
		"name":     {username},
		"email":    {address},
		"password": {"hunter2hunter2"},
		"code":     {"424242"},
	})
	if resp.Code != http.StatusCreated {
		e.t.Fatalf("register: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = e.post("/api/login", "", url.Values{
		"username": {username},
		"password": {"hunter2hunter2"},
		"hostname": {"test"},
		"platform": {"linux"},
	})
	if resp.Code != http.StatusOK {
		e.t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var login struct {
		SessionID string         `json:"session_id"`
		User      map[string]any `json:"user"`
	}
	decode(e.t, resp, &login)
	if login.SessionID == "" {
		e.t.Fatalf("login returned no session id")
	}
	return login.SessionID, login.User
}

func (e *testEnv) makeDeveloper(username string) {
	e.t.Helper()
	u, err := e.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		e.t.Fatalf("load user: %v", err)
	}
	if _, err := e.app.Accounts.SetDeveloper(context.Background(), u.ID, true); err != nil {
		e.t.Fatalf("set developer: %v", err)
	}
}

func TestAuthGating(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.get("/api/profile", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
	if resp := env.get("/api/profile", "bogus-token"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.Code)
	}
	if resp := env.get("/healthz", ""); resp.Code != http.StatusOK {
		t.Fatalf("healthz should be open, got %d", resp.Code)
	}
}

func TestRegisterLoginProfile(t *testing.T) {
	env := newTestEnv(t)

	token, loginUser := env.registerAndLogin("alice")
	if loginUser["username"] != "alice" {
		t.Fatalf("unexpected login user: %#v", loginUser)
	}
	if _, leaked := loginUser["password_hash"]; leaked {
		t.Fatalf("password hash must never cross the wire")
	}

	resp := env.get("/api/profile", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", resp.Code)
	}
	var profile map[string]any
	decode(t, resp, &profile)
	if profile["balance"] != "0.00" {
		t.Fatalf("expected formatted zero balance, got %v", profile["balance"])
	}

	// Wrong password never reveals which field failed.
	resp = env.post("/api/login", "", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.Code)
	}

	resp = env.post("/api/logout", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.Code)
	}
	if resp := env.get("/api/profile", token); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.Code)
	}
}

func TestPurchaseFlow(t *testing.T) {
	env := newTestEnv(t)

	devToken, _ := env.registerAndLogin("dev")
	env.makeDeveloper("dev")
	buyerToken, _ := env.registerAndLogin("buyer")

	// Publishing requires the developer role.
	form := url.Values{
		"name":         {"Skyforge"},
		"package_name": {"com.example.skyforge"},
		"price":        {"15.00"},
		"release_date": {"2024-03-01"},
		"platforms":    {"windows,linux"},
	}
	if resp := env.post("/api/applications", buyerToken, form); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-developer, got %d", resp.Code)
	}

	resp := env.post("/api/applications", devToken, form)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create application: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	}
	decode(t, resp, &created)
	if created.Price != "15.00" {
		t.Fatalf("expected formatted price, got %q", created.Price)
	}

	// Buying with an empty balance fails without side effects.
	resp = env.post("/api/purchases", buyerToken, url.Values{"application_id": {created.ID}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient funds, got %d", resp.Code)
	}

	resp = env.post("/api/deposits", buyerToken, url.Values{"amount": {"20.00"}})
	if resp.Code != http.StatusCreated {
		t.Fatalf("deposit: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.post("/api/purchases", buyerToken, url.Values{"application_id": {created.ID}})
	if resp.Code != http.StatusCreated {
		t.Fatalf("purchase: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var receipt struct {
		Purchase struct {
			Price  string `json:"price"`
			Source string `json:"source"`
		} `json:"purchase"`
		Key *struct {
			Key      string `json:"key"`
			Redeemed bool   `json:"redeemed"`
		} `json:"key"`
	}
	decode(t, resp, &receipt)
	if receipt.Purchase.Price != "15.00" || receipt.Purchase.Source != "self" {
		t.Fatalf("unexpected purchase: %#v", receipt.Purchase)
	}
	if receipt.Key == nil || !receipt.Key.Redeemed {
		t.Fatalf("purchase should carry a redeemed key")
	}

	resp = env.get("/api/ownership/"+created.ID, buyerToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("ownership: expected 200, got %d", resp.Code)
	}
	var owned map[string]bool
	decode(t, resp, &owned)
	if !owned["owned"] {
		t.Fatalf("buyer should own the application")
	}

	resp = env.get("/api/profile", buyerToken)
	var profile map[string]any
	decode(t, resp, &profile)
	if profile["balance"] != "5.00" {
		t.Fatalf("expected balance 5.00 after purchase, got %v", profile["balance"])
	}

	// A purchase plus a deposit leave two ledger entries.
	resp = env.get("/api/transactions", buyerToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d", resp.Code)
	}
	var txs []map[string]any
	decode(t, resp, &txs)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestGiftFlow(t *testing.T) {
	env := newTestEnv(t)

	devToken, _ := env.registerAndLogin("dev")
	env.makeDeveloper("dev")
	payerToken, _ := env.registerAndLogin("payer")
	_, friendUser := env.registerAndLogin("friend")
	friendToken, _ := env.registerAndLogin2("friend")

	resp := env.post("/api/applications", devToken, url.Values{
		"name":         {"Skyforge"},
		"package_name": {"com.example.skyforge"},
		"price":        {"15.00"},
		"release_date": {"2024-03-01"},
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)

	env.post("/api/deposits", payerToken, url.Values{"amount": {"20.00"}})

	resp = env.post("/api/purchases", payerToken, url.Values{
		"application_id": {created.ID},
		"recipient":      {friendUser["identifier"].(string)},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("gift: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.get("/api/ownership/"+created.ID, friendToken)
	var owned map[string]bool
	decode(t, resp, &owned)
	if !owned["owned"] {
		t.Fatalf("recipient should own the gifted application")
	}

	resp = env.get("/api/purchases/source?application_id="+created.ID, friendToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("purchase source: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var source struct {
		Payer map[string]any `json:"payer"`
	}
	decode(t, resp, &source)
	if source.Payer["username"] != "payer" {
		t.Fatalf("expected payer exposed by username, got %#v", source.Payer)
	}
}

// registerAndLogin2 logs an existing account in again on a second device.
func (e *testEnv) registerAndLogin2(username string) (string, map[string]any) {
	e.t.Helper()
	resp := e.post("/api/login", "", url.Values{
		"username": {username},
		"password": {"hunter2hunter2"},
		"hostname": {"second"},
	})
	if resp.Code != http.StatusOK {
		e.t.Fatalf("second login: expected 200, got %d", resp.Code)
	}
	var login struct {
		SessionID string         `json:"session_id"`
		User      map[string]any `json:"user"`
	}
	decode(e.t, resp, &login)
	return login.SessionID, login.User
}

func TestFriendFlow(t *testing.T) {
	env := newTestEnv(t)

	aliceToken, _ := env.registerAndLogin("alice")
	bobToken, bobUser := env.registerAndLogin("bob")

	resp := env.post("/api/friend-requests", aliceToken, url.Values{
		"identifier": {bobUser["identifier"].(string)},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("friend request: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.get("/api/friend-requests", bobToken)
	var requests []struct {
		ID   string         `json:"id"`
		From map[string]any `json:"from"`
	}
	decode(t, resp, &requests)
	if len(requests) != 1 || requests[0].From["username"] != "alice" {
		t.Fatalf("unexpected requests: %#v", requests)
	}

	resp = env.post("/api/friend-requests/"+requests[0].ID+"/accept", bobToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	for _, token := range []string{aliceToken, bobToken} {
		resp = env.get("/api/friends", token)
		var friends []map[string]any
		decode(t, resp, &friends)
		if len(friends) != 1 {
			t.Fatalf("expected 1 friend on both sides, got %d", len(friends))
		}
	}

	resp = env.do(http.MethodDelete, "/api/friends/"+bobUser["identifier"].(string), aliceToken, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("remove friend: expected 204, got %d", resp.Code)
	}
	resp = env.get("/api/friends", bobToken)
	var friends []map[string]any
	decode(t, resp, &friends)
	if len(friends) != 0 {
		t.Fatalf("removal should clear both sides, got %d", len(friends))
	}
}

func TestCloudSaveGate(t *testing.T) {
	env := newTestEnv(t)

	devToken, _ := env.registerAndLogin("dev")
	env.makeDeveloper("dev")
	playerToken, _ := env.registerAndLogin("player")

	resp := env.post("/api/applications", devToken, url.Values{
		"name":         {"Skyforge"},
		"package_name": {"com.example.skyforge"},
		"price":        {"5.00"},
		"release_date": {"2024-03-01"},
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)

	// Saving without owning the application is forbidden.
	resp = env.do(http.MethodPut, "/api/cloud/"+created.ID, playerToken, url.Values{
		"data": {`{"level": 3}`},
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without entitlement, got %d: %s", resp.Code, resp.Body.String())
	}

	env.post("/api/deposits", playerToken, url.Values{"amount": {"5.00"}})
	env.post("/api/purchases", playerToken, url.Values{"application_id": {created.ID}})

	resp = env.do(http.MethodPut, "/api/cloud/"+created.ID, playerToken, url.Values{
		"data": {`{"level": 3}`},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("put save: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.get("/api/cloud/"+created.ID, playerToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("get save: expected 200, got %d", resp.Code)
	}
	var save struct {
		Data map[string]any `json:"data"`
	}
	decode(t, resp, &save)
	if save.Data["level"] != float64(3) {
		t.Fatalf("unexpected save payload: %#v", save.Data)
	}

	resp = env.do(http.MethodDelete, "/api/cloud/"+created.ID, playerToken, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete save: expected 204, got %d", resp.Code)
	}
}

func TestMissingResourceIsClientError(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get("/api/applications/no-such-id", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown application, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestOrphanedSessionIsClientError(t *testing.T) {
	env := newTestEnv(t)

	// A token whose user no longer exists is a data problem, not a bad
	// credential.
	if _, err := env.store.CreateSession(context.Background(), session.Session{
		Token:  "ghost-token",
		UserID: "no-such-user",
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if resp := env.get("/api/profile", "ghost-token"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for session without a user, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := env.get("/api/profile", "never-issued"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.Code)
	}
}

func TestPurchaseSourceByPurchaseID(t *testing.T) {
	env := newTestEnv(t)

	devToken, _ := env.registerAndLogin("dev")
	env.makeDeveloper("dev")
	buyerToken, _ := env.registerAndLogin("buyer")

	resp := env.post("/api/applications", devToken, url.Values{
		"name":         {"Skyforge"},
		"package_name": {"com.example.skyforge"},
		"price":        {"5.00"},
		"release_date": {"2024-03-01"},
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)

	resp = env.post("/api/applications/"+created.ID+"/iaps", devToken, url.Values{
		"title": {"Starter Pack"},
		"price": {"2.00"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create iap: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var iap struct {
		ID string `json:"id"`
	}
	decode(t, resp, &iap)

	env.post("/api/deposits", buyerToken, url.Values{"amount": {"10.00"}})
	env.post("/api/purchases", buyerToken, url.Values{"application_id": {created.ID}})

	// IAP purchases carry no entitlement key, so the purchase id is the
	// only handle on their payer.
	resp = env.post("/api/purchases/iap", buyerToken, url.Values{"iap_id": {iap.ID}})
	if resp.Code != http.StatusCreated {
		t.Fatalf("purchase iap: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var receipt struct {
		Purchase struct {
			ID string `json:"id"`
		} `json:"purchase"`
	}
	decode(t, resp, &receipt)

	resp = env.get("/api/purchases/source?purchase_id="+receipt.Purchase.ID, buyerToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("purchase source: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var source struct {
		Purchase struct {
			ID string `json:"id"`
		} `json:"purchase"`
		Payer map[string]any `json:"payer"`
	}
	decode(t, resp, &source)
	if source.Purchase.ID != receipt.Purchase.ID {
		t.Fatalf("expected purchase %s, got %s", receipt.Purchase.ID, source.Purchase.ID)
	}
	if source.Payer["username"] != "buyer" {
		t.Fatalf("expected payer exposed by username, got %#v", source.Payer)
	}
}

func TestPlaySessions(t *testing.T) {
	env := newTestEnv(t)

	devToken, _ := env.registerAndLogin("dev")
	env.makeDeveloper("dev")
	playerToken, _ := env.registerAndLogin("player")

	resp := env.post("/api/applications", devToken, url.Values{
		"name":         {"Skyforge"},
		"package_name": {"com.example.skyforge"},
		"price":        {"0"},
		"release_date": {"2024-03-01"},
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)

	for _, length := range []string{"600", "1200"} {
		resp = env.post("/api/play-sessions", playerToken, url.Values{
			"application_id": {created.ID},
			"length":         {length},
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("record session: expected 201, got %d: %s", resp.Code, resp.Body.String())
		}
	}

	resp = env.get("/api/playtime?application_id="+created.ID, playerToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("playtime: expected 200, got %d", resp.Code)
	}
	var playtime map[string]int
	decode(t, resp, &playtime)
	if playtime["seconds"] != 1800 {
		t.Fatalf("expected 1800 seconds, got %d", playtime["seconds"])
	}
}
