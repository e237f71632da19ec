package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

func TestIndex(t *testing.T) {
	ts := httptest.NewServer(Index{})
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body.Message != "Codolio Scraper API" || body.Status != "active" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(Health{})
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body.Status != "healthy" {
		t.Errorf("Status, exp: healthy, got: %v", body.Status)
	}
}

func expectDetail(t *testing.T, resp *http.Response, status int, detail string) {
	t.Helper()

	if resp.StatusCode != status {
		t.Errorf("Status, exp: %v, got: %v", status, resp.StatusCode)
	}

	var body data.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal("Error decoding error body: ", err)
	}

	if body.Detail != detail {
		t.Errorf("Detail, exp: %v, got: %v", detail, body.Detail)
	}
}

func testPlatforms(p string) bool {
	switch p {
	case "codolio", "leetcode", "codeforces":
		return true
	}
	return false
}

func TestProfilesUsernameRequired(t *testing.T) {
	ts := httptest.NewServer(NewProfilesHandler(nil, time.Second, testPlatforms))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/codolio")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectDetail(t, resp, http.StatusBadRequest, "Username required")

	resp, err = http.Post(ts.URL+"/codolio", "application/json",
		strings.NewReader(`{"username": "   "}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectDetail(t, resp, http.StatusBadRequest, "Username required")
}

func TestProfilesUnknownPlatform(t *testing.T) {
	ts := httptest.NewServer(NewProfilesHandler(nil, time.Second, testPlatforms))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/favicon.ico")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status, exp: 404, got: %v", resp.StatusCode)
	}
}

func TestProfilesBadMethod(t *testing.T) {
	ts := httptest.NewServer(NewProfilesHandler(nil, time.Second, testPlatforms))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/codolio/alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Status, exp: 405, got: %v", resp.StatusCode)
	}
}

func TestJobsValidation(t *testing.T) {
	ts := httptest.NewServer(NewJobsHandler(nil, nil, time.Second, testPlatforms))
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json",
		strings.NewReader(`{"platform": "codolio"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectDetail(t, resp, http.StatusBadRequest, "Username required")

	resp, err = http.Post(ts.URL, "application/json",
		strings.NewReader(`{"username": "alice"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectDetail(t, resp, http.StatusBadRequest, "Platform required")

	resp, err = http.Post(ts.URL, "application/json",
		strings.NewReader(`{"platform": "myspace", "username": "alice"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectDetail(t, resp, http.StatusBadRequest, "Unknown platform: myspace")

	resp, err = http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Status, exp: 405, got: %v", resp.StatusCode)
	}
}

func TestAuthHandler(t *testing.T) {
	key, err := NewKey([]byte("0123456789abcdefghij"))
	if err != nil {
		t.Fatal("Error creating key: ", err)
	}

	ts := httptest.NewServer(NewAuthHandler("hunter2", key))
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json",
		strings.NewReader(`{"password": "wrong"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Status, exp: 403, got: %v", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL, "application/json",
		strings.NewReader(`{"password": "hunter2"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var auth data.Auth
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatal(err)
	}

	if !key.ValidToken(auth.Token) {
		t.Error("Expected issued token to validate")
	}
}

func TestV1AuthGuard(t *testing.T) {
	key, err := NewKey([]byte("0123456789abcdefghij"))
	if err != nil {
		t.Fatal("Error creating key: ", err)
	}

	v1 := &V1{
		auth:        key,
		AuthHandler: NewAuthHandler("", key),
		JobsHandler: NewJobsHandler(nil, nil, time.Second, testPlatforms),
		Admin:       NewAdminHandler(nil, time.Second),
	}
	ts := httptest.NewServer(v1)
	defer ts.Close()

	for _, path := range []string{"/status", "/workers", "/cache"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%v status, exp: 401, got: %v", path, resp.StatusCode)
		}
	}

	// jobs stay public
	resp, err := http.Post(ts.URL+"/jobs", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("jobs status, exp: 400, got: %v", resp.StatusCode)
	}
}

func TestCors(t *testing.T) {
	next := http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.WriteHeader(http.StatusTeapot)
	})
	ts := httptest.NewServer(corsAllowAll(next))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "https://example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Preflight status, exp: 204, got: %v", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Allow-Origin, exp: https://example.com, got: %v", got)
	}

	resp, err = http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("Passthrough status, exp: 418, got: %v", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin, exp: *, got: %v", got)
	}
}

func TestAppRouting(t *testing.T) {
	mark := func(s string) http.Handler {
		return http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
			_, _ = res.Write([]byte(s))
		})
	}

	app := &App{
		IndexHandler:    mark("index"),
		HealthHandler:   mark("health"),
		ProfilesHandler: mark("profiles"),
		V1Handler:       mark("v1"),
		DebugHandler:    mark("debug"),
	}
	ts := httptest.NewServer(app)
	defer ts.Close()

	tests := []struct {
		path string
		exp  string
	}{
		{"/", "index"},
		{"/health", "health"},
		{"/v1/jobs", "v1"},
		{"/debug/devtools/w1", "debug"},
		{"/codolio/alice", "profiles"},
		{"/leetcode/bob", "profiles"},
	}

	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 32)
		n, _ := resp.Body.Read(buf)
		resp.Body.Close()

		if got := string(buf[:n]); got != tt.exp {
			t.Errorf("%v routed to %v, exp: %v", tt.path, got, tt.exp)
		}
	}
}
