package api

import (
	"crypto/tls"
	"fmt"
	"os"
)

// TLS environment variables.
const (
	EnvTLSCert = "SEMZOOM_TLS_CERT"
	EnvTLSKey  = "SEMZOOM_TLS_KEY"
)

// TLSConfig holds certificate and key paths.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

var tlsConfig *TLSConfig

// InitTLS reads the certificate paths. TLS is enabled only when both are set.
func InitTLS() {
	cert, key := os.Getenv(EnvTLSCert), os.Getenv(EnvTLSKey)
	if cert == "" || key == "" {
		tlsConfig = nil
		return
	}
	tlsConfig = &TLSConfig{CertFile: cert, KeyFile: key}
}

// IsTLSEnabled reports whether the server should serve HTTPS.
func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// GetTLSConfig returns the configured paths, or nil.
func GetTLSConfig() *TLSConfig {
	return tlsConfig
}

// LoadTLSConfig loads the key pair. It returns nil, nil when TLS is disabled.
func LoadTLSConfig() (*tls.Config, error) {
	if !IsTLSEnabled() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// SetTLSConfigForTest sets the TLS paths directly.
func SetTLSConfigForTest(cfg *TLSConfig) {
	tlsConfig = cfg
}
