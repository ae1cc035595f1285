package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/config"
	"github.com/mmynk/billspace/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:     config.StoreConfig{Driver: config.DriverMemory},
		Auth:      config.AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: time.Hour, BcryptCost: 4},
		Log:       config.LogConfig{Level: "info", Format: "console"},
		RateLimit: config.RateLimitConfig{LoginPerMinute: 1, LoginBurst: 2},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(config.StoreConfig{Driver: config.DriverMemory})
	if err != nil {
		t.Fatalf("memory store failed: %v", err)
	}
	store.Close()

	store, err = OpenStore(config.StoreConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "app.db")})
	if err != nil {
		t.Fatalf("sqlite store failed: %v", err)
	}
	store.Close()

	if _, err := OpenStore(config.StoreConfig{Driver: "mysql"}); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}

func TestServerWiring(t *testing.T) {
	cfg := testConfig()
	store, err := OpenStore(cfg.Store)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	srv := NewServer(cfg, store, nil)
	server := httptest.NewServer(srv.Handler)
	defer server.Close()

	register := connect.NewClient[service.RegisterRequest, service.LoginResponse](
		http.DefaultClient, server.URL+service.RegisterProcedure, connect.WithCodec(service.Codec))
	resp, err := register.CallUnary(context.Background(), connect.NewRequest(&service.RegisterRequest{
		Username:    "alice",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Password:    "Passw0rd!",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	spaces := connect.NewClient[emptypb.Empty, service.ListSpacesResponse](
		http.DefaultClient, server.URL+service.ListSpacesProcedure, connect.WithCodec(service.Codec))
	if _, err := spaces.CallUnary(context.Background(), connect.NewRequest(&emptypb.Empty{})); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("without token: expected Unauthenticated, got %v", err)
	}
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set("Authorization", "Bearer "+resp.Msg.Token)
	if _, err := spaces.CallUnary(context.Background(), req); err != nil {
		t.Errorf("with token: ListSpaces failed: %v", err)
	}

	login := connect.NewClient[service.LoginRequest, service.LoginResponse](
		http.DefaultClient, server.URL+service.LoginProcedure, connect.WithCodec(service.Codec))
	var lastErr error
	for i := 0; i < 3; i++ {
		_, lastErr = login.CallUnary(context.Background(), connect.NewRequest(&service.LoginRequest{
			Username: "alice", Password: "Passw0rd!",
		}))
	}
	if connect.CodeOf(lastErr) != connect.CodeResourceExhausted {
		t.Errorf("expected the credential budget to run out, got %v", lastErr)
	}

	httpResp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer httpResp.Body.Close()
	body, _ := io.ReadAll(httpResp.Body)
	if !strings.Contains(string(body), `procedure="`+service.LoginProcedure+`"`) {
		t.Error("expected login calls in metrics")
	}
}

func TestHealthz(t *testing.T) {
	cfg := testConfig()
	store, err := OpenStore(cfg.Store)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	rec := httptest.NewRecorder()
	NewServer(cfg, store, nil).Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status: expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body: expected ok, got %q", body)
	}
}
