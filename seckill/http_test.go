package seckill

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flashsale-gateway/middleware/access"
	"flashsale-gateway/seckill/application"
	"flashsale-gateway/seckill/domain"
	"flashsale-gateway/seckill/infra"
)

type fixture struct {
	api    *API
	kv     *infra.MemoryKV
	ledger *infra.MemoryLedger
	queue  *infra.MemoryQueue
}

func newFixture(intn func(int) int) *fixture {
	kv := infra.NewMemoryKV()
	ledger := infra.NewMemoryLedger()
	journal := infra.NewMemoryJournal()
	queue := infra.NewMemoryQueue()

	tokens := application.PathTokenService{Store: kv}
	api := &API{
		Challenges: application.ChallengeService{Store: kv, IntN: intn},
		Tokens:     tokens,
		Orders: application.Service{
			Tokens:  tokens,
			Ledger:  ledger,
			Journal: journal,
			Queue:   queue,
		},
	}
	return &fixture{api: api, kv: kv, ledger: ledger, queue: queue}
}

// seq devolve um IntN determinístico que percorre a sequência dada.
func seq(vals []int) func(int) int {
	i := 0
	return func(int) int {
		v := vals[i%len(vals)]
		i++
		return v
	}
}

func doGet(t *testing.T, h http.Handler, target, buyer string) (int, envelope) {
	t.Helper()
	return do(t, h, http.MethodGet, target, buyer)
}

func do(t *testing.T, h http.Handler, method, target, buyer string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if buyer != "" {
		req = req.WithContext(access.WithBuyer(req.Context(), buyer))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body envelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec.Code, body
}

func TestAPI_ChallengeRequiresSession(t *testing.T) {
	fx := newFixture(nil)
	r := fx.api.Routes()

	status, body := doGet(t, r, "/challenge?item=ipad", "")
	if status != http.StatusUnauthorized || body.Code != CodeSessionError {
		t.Fatalf("expected 401/%d, got %d/%d", CodeSessionError, status, body.Code)
	}
}

func TestAPI_ChallengeRequiresItem(t *testing.T) {
	fx := newFixture(nil)
	r := fx.api.Routes()

	status, body := doGet(t, r, "/challenge", "alice")
	if status != http.StatusOK || body.Code != CodeRequestIllegal {
		t.Fatalf("expected 200/%d, got %d/%d", CodeRequestIllegal, status, body.Code)
	}
}

func TestAPI_ChallengeReturnsText(t *testing.T) {
	// 2+3*4
	fx := newFixture(seq([]int{2, 3, 4, 0, 2}))
	r := fx.api.Routes()

	status, body := doGet(t, r, "/challenge?item=ipad", "alice")
	if status != http.StatusOK || body.Code != CodeSuccess {
		t.Fatalf("expected 200/0, got %d/%d", status, body.Code)
	}
	data := body.Data.(map[string]interface{})
	if data["challenge"] != "2+3*4" {
		t.Fatalf("unexpected challenge text %q", data["challenge"])
	}
	if data["ttl_seconds"].(float64) != 60 {
		t.Fatalf("unexpected ttl %v", data["ttl_seconds"])
	}
}

func TestAPI_PathRejectsWrongAnswer(t *testing.T) {
	fx := newFixture(seq([]int{2, 3, 4, 0, 2}))
	r := fx.api.Routes()

	doGet(t, r, "/challenge?item=ipad", "alice")
	_, body := doGet(t, r, "/path?item=ipad&answer=99", "alice")
	if body.Code != CodeRequestIllegal {
		t.Fatalf("expected code %d for wrong answer, got %d", CodeRequestIllegal, body.Code)
	}
}

func TestAPI_PathRejectsMalformedAnswer(t *testing.T) {
	fx := newFixture(nil)
	r := fx.api.Routes()

	_, body := doGet(t, r, "/path?item=ipad&answer=abc", "alice")
	if body.Code != CodeRequestIllegal {
		t.Fatalf("expected code %d, got %d", CodeRequestIllegal, body.Code)
	}
}

func TestAPI_OrderRejectsBogusToken(t *testing.T) {
	fx := newFixture(nil)
	ctx := context.Background()
	_ = fx.ledger.SeedStock(ctx, "ipad", 1)
	r := fx.api.Routes()

	_, body := do(t, r, http.MethodPost, "/bogus-token/order?item=ipad", "alice")
	if body.Code != CodeRequestIllegal {
		t.Fatalf("expected code %d for bogus token, got %d", CodeRequestIllegal, body.Code)
	}
	if fx.queue.Len(application.DefaultTopic) != 0 {
		t.Fatalf("nothing should reach the queue on a bogus token")
	}
}

func TestAPI_FullFlowQueuesAndResolves(t *testing.T) {
	// 2+3*4 = 14
	fx := newFixture(seq([]int{2, 3, 4, 0, 2}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = fx.ledger.SeedStock(ctx, "ipad", 1)
	r := fx.api.Routes()

	if _, body := doGet(t, r, "/challenge?item=ipad", "alice"); body.Code != CodeSuccess {
		t.Fatalf("challenge failed with code %d", body.Code)
	}

	_, body := doGet(t, r, "/path?item=ipad&answer=14", "alice")
	if body.Code != CodeSuccess {
		t.Fatalf("path failed with code %d", body.Code)
	}
	token := body.Data.(map[string]interface{})["path"].(string)
	if len(token) != 64 {
		t.Fatalf("unexpected token %q", token)
	}

	_, body = do(t, r, http.MethodPost, "/"+token+"/order?item=ipad", "alice")
	if body.Code != CodeSuccess {
		t.Fatalf("order failed with code %d", body.Code)
	}

	// ainda na fila => pendente
	_, body = doGet(t, r, "/result?item=ipad", "alice")
	if got := int64(body.Data.(map[string]interface{})["result"].(float64)); got != domain.ResultPending {
		t.Fatalf("expected pending before drain, got %d", got)
	}

	// drena a única mensagem
	worker := application.FulfillmentWorker{Ledger: fx.ledger, Journal: fx.api.Orders.Journal}
	done := make(chan struct{})
	go func() {
		_ = fx.queue.Consume(ctx, application.DefaultTopic, func(ctx context.Context, payload []byte) error {
			err := worker.Handle(ctx, payload)
			close(done)
			return err
		})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout draining queue")
	}

	_, body = doGet(t, r, "/result?item=ipad", "alice")
	if got := int64(body.Data.(map[string]interface{})["result"].(float64)); got <= 0 {
		t.Fatalf("expected positive order id, got %d", got)
	}

	// o token de rota é de uso único: repetir o POST falha
	_, body = do(t, r, http.MethodPost, "/"+token+"/order?item=ipad", "alice")
	if body.Code != CodeRequestIllegal {
		t.Fatalf("expected replayed token rejected with %d, got %d", CodeRequestIllegal, body.Code)
	}
}

func TestAPI_OrderSoldOutShortCircuit(t *testing.T) {
	fx := newFixture(seq([]int{1, 1, 1, 0, 0}))
	ctx := context.Background()
	_ = fx.ledger.SeedStock(ctx, "ipad", 0)
	_, _ = fx.ledger.TryDecrement(ctx, "ipad")
	r := fx.api.Routes()

	doGet(t, r, "/challenge?item=ipad", "alice")
	_, body := doGet(t, r, "/path?item=ipad&answer=3", "alice")
	if body.Code != CodeSuccess {
		t.Fatalf("path failed with code %d", body.Code)
	}
	token := body.Data.(map[string]interface{})["path"].(string)

	_, body = do(t, r, http.MethodPost, "/"+token+"/order?item=ipad", "alice")
	if body.Code != CodeSoldOut {
		t.Fatalf("expected code %d, got %d", CodeSoldOut, body.Code)
	}
}
