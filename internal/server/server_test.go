package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/gin-gonic/gin"
)

func setupGateway(t *testing.T, upstreamURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if err := db.InitDB("sqlite", ":memory:", false); err != nil {
		t.Fatal(err)
	}
	if err := op.GroupUpsert(model.Group{ID: "g1", Token: "sk-test-token", Status: model.GroupStatusEnabled, ConsumeLevel: 1}); err != nil {
		t.Fatal(err)
	}
	if err := op.PriceUpsert(model.Price{
		Model:          "gpt-4o",
		InputPrice:     0.002,
		InputPriceUnit: 1000,
		OutputPrice:    0.004, OutputPriceUnit: 1000,
	}); err != nil {
		t.Fatal(err)
	}

	reg := registry.New(10)
	if err := op.ChannelUpsert(reg, model.Channel{
		ID: 1, Name: "up", Status: model.ChannelStatusEnabled,
		BaseUrl: upstreamURL, ApiKey: "sk-up", Models: []string{"gpt-4o"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := op.InitCache(reg); err != nil {
		t.Fatal(err)
	}

	logs := op.NewLogStore(64, 8, time.Second)
	exec := relay.NewExecutor(relay.Config{
		RetryTimes:       1,
		DefaultTimeout:   5 * time.Second,
		GroupMaxTokenNum: 1000000,
		RequestBodyMax:   10 * 1024,
		ResponseBodyMax:  10 * 1024,
		ConsumeRatio:     conf.ConsumeLevelRatio,
	}, reg, relay.NewSelector(reg, 1), op.PriceTable{}, logs, op.GroupUsageRecorder{})

	return Setup(reg, exec)
}

func TestRelayEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","usage":{"prompt_tokens":10,"completion_tokens":5}}`)
	}))
	defer upstream.Close()

	engine := setupGateway(t, upstream.URL)

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
			strings.NewReader(`{"model":"gpt-4o"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
			strings.NewReader(`{"model":"gpt-4o"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer sk-wrong")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("relays and returns upstream body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
			strings.NewReader(`{"model":"gpt-4o"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer sk-test-token")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var body struct {
			Usage struct {
				PromptTokens int `json:"prompt_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("response not passed through: %v", err)
		}
		if body.Usage.PromptTokens != 10 {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("missing model rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
			strings.NewReader(`{"stream":false}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer sk-test-token")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("x-api-key header accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages",
			strings.NewReader(`{"model":"gpt-4o"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", "sk-test-token")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestAdminEndpointAuth(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()
	engine := setupGateway(t, upstream.URL)

	oldToken := conf.AppConfig.Server.AdminToken
	conf.AppConfig.Server.AdminToken = "admin-secret"
	t.Cleanup(func() { conf.AppConfig.Server.AdminToken = oldToken })

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated admin call got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated admin call got %d", w.Code)
	}
}
