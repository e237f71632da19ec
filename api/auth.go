package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/SambhavSurthi/codolio-scraper/data"
)

// Auth exchanges the admin password for a short lived bearer token.
type Auth struct {
	pass string
	key  Authorizer
}

// NewAuthHandler returns a new authentication handler using the given
// key. An empty pass means authentication is disabled and any request
// gets a token.
func NewAuthHandler(pass string, key Authorizer) Auth {
	return Auth{pass: pass, key: key}
}

// ServeHTTP serves requests to authenticate.
func (auth Auth) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(res, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := decode(req.Body, &body); err != nil {
		writeError(res, http.StatusBadRequest, "Invalid request body")
		return
	}

	if auth.pass != "" &&
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(auth.pass)) != 1 {
		http.Error(res, "invalid login", http.StatusForbidden)
		return
	}

	token, err := auth.key.NewToken()
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	_ = encode(res, data.Auth{Token: token})
}
