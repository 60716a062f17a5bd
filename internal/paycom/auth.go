package paycom

import (
	"crypto/subtle"
	"encoding/base64"
	"regexp"
)

// HeaderLookup returns the value of an inbound request header.
type HeaderLookup func(name string) string

var basicAuthPattern = regexp.MustCompile(`(?i)^\s*Basic\s+(\S+)\s*$`)

// Gate checks the gateway's Basic credentials against the merchant login
// and the current secret.
type Gate struct {
	login string
	creds Credentials
}

func NewGate(login string, creds Credentials) *Gate {
	return &Gate{login: login, creds: creds}
}

// Authorize fails with an insufficient-privilege error unless the
// Authorization header carries exactly login:secret.
func (g *Gate) Authorize(lookup HeaderLookup) *Error {
	deny := errInsufficientPrivilege("Insufficient privilege to perform this method.")
	if lookup == nil {
		return deny
	}
	m := basicAuthPattern.FindStringSubmatch(lookup("Authorization"))
	if m == nil {
		return deny
	}
	decoded, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return deny
	}
	secret, err := g.creds.Secret()
	if err != nil || secret == "" {
		return deny
	}
	expected := []byte(g.login + ":" + secret)
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return deny
	}
	return nil
}
