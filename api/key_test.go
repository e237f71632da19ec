package api

import (
	"net/http"
	"testing"
)

func authedRequest(t *testing.T, token string) *http.Request {
	req, err := http.NewRequest(http.MethodGet, "/v1/status", nil)
	if err != nil {
		t.Fatal("Error building request: ", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestKey(t *testing.T) {
	key, err := NewKey([]byte("0123456789abcdefghij"))
	if err != nil {
		t.Fatal("Error creating key: ", err)
	}

	token, err := key.NewToken()
	if err != nil {
		t.Fatal("Error creating token: ", err)
	}

	if !key.Valid(authedRequest(t, token)) {
		t.Error("Expected token to validate")
	}

	if key.Valid(authedRequest(t, "not-a-token")) {
		t.Error("Expected garbage token to fail")
	}

	req, err := http.NewRequest(http.MethodGet, "/v1/status", nil)
	if err != nil {
		t.Fatal("Error building request: ", err)
	}
	if key.Valid(req) {
		t.Error("Expected request without token to fail")
	}
}

func TestKeyMismatch(t *testing.T) {
	key1, err := NewKey([]byte("0123456789abcdefghij"))
	if err != nil {
		t.Fatal("Error creating key: ", err)
	}
	key2, err := NewKey([]byte("jihgfedcba9876543210"))
	if err != nil {
		t.Fatal("Error creating key: ", err)
	}

	token, err := key1.NewToken()
	if err != nil {
		t.Fatal("Error creating token: ", err)
	}

	if key2.Valid(authedRequest(t, token)) {
		t.Error("Expected token signed by other key to fail")
	}
}

func TestKeyEmpty(t *testing.T) {
	if _, err := NewKey(nil); err == nil {
		t.Error("Expected error creating key with no bytes")
	}
}

func TestAlwaysValid(t *testing.T) {
	var a Authorizer = AlwaysValid{}

	token, err := a.NewToken()
	if err != nil || token == "" {
		t.Error("Expected stub token, got: ", token, err)
	}

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	if err != nil {
		t.Fatal("Error building request: ", err)
	}
	if !a.Valid(req) {
		t.Error("Expected AlwaysValid to pass")
	}
}
