package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "identity-plane-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "identity-plane-auth")
	}
	if cfg.JWTAudience != "identity-plane-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "identity-plane-api")
	}
	if cfg.SessionTTL != "24h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "24h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.PrimaryAffiliationCode != "PRIMARY-ORG" {
		t.Errorf("PrimaryAffiliationCode = %q, want %q", cfg.PrimaryAffiliationCode, "PRIMARY-ORG")
	}
	if cfg.EventQueueSize != 256 {
		t.Errorf("EventQueueSize = %d, want 256", cfg.EventQueueSize)
	}
	if cfg.EventWorkers != 4 {
		t.Errorf("EventWorkers = %d, want 4", cfg.EventWorkers)
	}
	if cfg.EventsTopic != "identity-events" {
		t.Errorf("EventsTopic = %q, want %q", cfg.EventsTopic, "identity-events")
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("LogLevel/LogFormat = %q/%q, want info/json", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("PRIMARY_AFFILIATION_CODE", "HQ-01")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.PrimaryAffiliationCode != "HQ-01" {
		t.Errorf("PrimaryAffiliationCode = %q, want %q", cfg.PrimaryAffiliationCode, "HQ-01")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestSessionTokenTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("SESSION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.SessionTokenTTL(); ttl != 30*time.Minute {
		t.Errorf("SessionTokenTTL = %v, want %v", ttl, 30*time.Minute)
	}
}

func TestSessionTokenTTL_InvalidDuration(t *testing.T) {
	for _, raw := range []string{"invalid", "0", "-5m"} {
		os.Clearenv()
		os.Setenv("SESSION_TTL", raw)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if ttl := cfg.SessionTokenTTL(); ttl != 24*time.Hour {
			t.Errorf("SessionTokenTTL(%q) = %v, want %v (default)", raw, ttl, 24*time.Hour)
		}
	}
}

func TestFederationVerifyTimeout(t *testing.T) {
	os.Clearenv()
	os.Setenv("FEDERATION_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := cfg.FederationVerifyTimeout(); d != 2*time.Second {
		t.Errorf("FederationVerifyTimeout = %v, want %v", d, 2*time.Second)
	}

	os.Setenv("FEDERATION_TIMEOUT", "bogus")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := cfg.FederationVerifyTimeout(); d != 5*time.Second {
		t.Errorf("FederationVerifyTimeout = %v, want %v (default)", d, 5*time.Second)
	}
}

func TestNotifyDispatchTimeout(t *testing.T) {
	os.Clearenv()
	os.Setenv("NOTIFY_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := cfg.NotifyDispatchTimeout(); d != 10*time.Second {
		t.Errorf("NotifyDispatchTimeout = %v, want %v", d, 10*time.Second)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList = %v, want nil", got)
	}

	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokersList = %v, want [kafka-1:9092 kafka-2:9092]", got)
	}
}
