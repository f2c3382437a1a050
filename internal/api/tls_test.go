package api

import (
	"testing"
)

func TestInitTLS(t *testing.T) {
	tests := []struct {
		name    string
		cert    string
		key     string
		enabled bool
	}{
		{"none", "", "", false},
		{"only cert", "/path/to/cert.pem", "", false},
		{"only key", "", "/path/to/key.pem", false},
		{"both", "/path/to/cert.pem", "/path/to/key.pem", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvTLSCert, tt.cert)
			t.Setenv(EnvTLSKey, tt.key)
			SetTLSConfigForTest(nil)
			t.Cleanup(func() { SetTLSConfigForTest(nil) })

			InitTLS()

			if IsTLSEnabled() != tt.enabled {
				t.Fatalf("IsTLSEnabled() = %v, want %v", IsTLSEnabled(), tt.enabled)
			}
			if tt.enabled {
				cfg := GetTLSConfig()
				if cfg.CertFile != tt.cert || cfg.KeyFile != tt.key {
					t.Errorf("unexpected config %+v", cfg)
				}
			}
		})
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	SetTLSConfigForTest(nil)

	cfg, err := LoadTLSConfig()
	if err != nil || cfg != nil {
		t.Errorf("expected nil, nil; got %v, %v", cfg, err)
	}
}

func TestLoadTLSConfig_InvalidFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	t.Cleanup(func() { SetTLSConfigForTest(nil) })

	if _, err := LoadTLSConfig(); err == nil {
		t.Error("expected error for missing key pair")
	}
}
