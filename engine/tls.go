package engine

import (
	"crypto/tls"
	"crypto/x509"
)

// TLSOptions controls how the engine trusts the remote peer. The default
// (zero value) verifies the peer against the system CA bundle and checks
// the hostname against the configured host.
type TLSOptions struct {
	// SkipVerify disables peer verification entirely. Never enabled by
	// default; exists only for adapters talking to a self-signed test
	// fixture.
	SkipVerify bool
	// RootCAs overrides the trust anchors. Nil uses the system pool.
	RootCAs *x509.CertPool
	// ServerName overrides the hostname used for certificate verification.
	// Empty derives it from the configured host.
	ServerName string
}

func (o TLSOptions) buildConfig(defaultServerName string) *tls.Config {
	serverName := o.ServerName
	if serverName == "" {
		serverName = defaultServerName
	}
	return &tls.Config{
		InsecureSkipVerify: o.SkipVerify,
		RootCAs:            o.RootCAs, // nil => system pool, matches "system CAs" default
		ServerName:         serverName,
	}
}
