package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/knowleague/internal/storage"
	pkgconfig "github.com/starford/knowleague/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Mongo.URI != DefaultMongoURI || cfg.Mongo.Database != "knowledge_base" || cfg.Mongo.Collection != "notes" {
		t.Errorf("mongo defaults = %+v", cfg.Mongo)
	}
	if cfg.Vault.Include != storage.DefaultInclude || cfg.Vault.Watch {
		t.Errorf("vault defaults = %+v", cfg.Vault)
	}
}

func TestMongoConfig_Validate(t *testing.T) {
	cases := map[string]func(*MongoConfig){
		"empty uri":        func(c *MongoConfig) { c.URI = "" },
		"empty database":   func(c *MongoConfig) { c.Database = "" },
		"empty collection": func(c *MongoConfig) { c.Collection = "" },
		"long database":    func(c *MongoConfig) { c.Database = strings.Repeat("d", 64) },
		"negative timeout": func(c *MongoConfig) { c.ServerSelectionTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig().Mongo
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEventsConfig_NegativeThrottle(t *testing.T) {
	cfg := EventsConfig{Throttle: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative throttle should fail")
	}
	cfg.Throttle = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero throttle should pass: %v", err)
	}
}

func TestVaultConfig_Required(t *testing.T) {
	cfg := VaultConfig{Include: storage.DefaultInclude}
	if err := cfg.Validate(); err == nil {
		t.Error("empty path should fail")
	}
	cfg = VaultConfig{Path: "./vault"}
	if err := cfg.Validate(); err == nil {
		t.Error("empty include should fail")
	}
}

func TestConfig_LoadFromYAML(t *testing.T) {
	t.Setenv("KL_MONGO_URI", "mongodb://db.internal:27017")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `app:
  http:
    port: 9090
mongo:
  uri: ${KL_MONGO_URI}
  collection: journal
  server_selection_timeout: 2s
events:
  throttle: 500ms
vault:
  path: /srv/notes
  watch: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Mongo.URI != "mongodb://db.internal:27017" || cfg.Mongo.Collection != "journal" || cfg.Mongo.Database != "knowledge_base" {
		t.Errorf("mongo = %+v", cfg.Mongo)
	}
	if cfg.Mongo.ServerSelectionTimeout != 2*time.Second || cfg.Events.Throttle != 500*time.Millisecond {
		t.Errorf("durations = %v, %v", cfg.Mongo.ServerSelectionTimeout, cfg.Events.Throttle)
	}
	if cfg.Vault.Path != "/srv/notes" || !cfg.Vault.Watch || cfg.Vault.Include != storage.DefaultInclude {
		t.Errorf("vault = %+v", cfg.Vault)
	}
}
