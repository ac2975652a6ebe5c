package seckill

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flashsale-gateway/middleware/access"
	"flashsale-gateway/seckill/application"
	"flashsale-gateway/seckill/domain"
)

// Códigos de negócio do envelope. Zero é sucesso; o restante segue faixas:
// 5001xx problemas de requisição, 5005xx desfechos da venda.
const (
	CodeSuccess        = 0
	CodeServerError    = 500100
	CodeSessionError   = 500101
	CodeRequestIllegal = 500102
	CodeSoldOut        = 500500
)

type envelope struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Code: CodeSuccess, Msg: "success", Data: data})
}

func writeBusiness(w http.ResponseWriter, code int, msg string) {
	// rejeição de negócio viaja com HTTP 200; o cliente decide pelo code
	writeJSON(w, http.StatusOK, envelope{Code: code, Msg: msg})
}

// API liga os casos de uso da venda relâmpago nas rotas HTTP.
type API struct {
	Challenges application.ChallengeService
	Tokens     application.PathTokenService
	Orders     application.Service
}

// Routes monta o sub-router do prefixo /seckill sem nenhum gate de admissão
// (útil em testes e quando o chamador aplica o middleware por fora).
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	a.Mount(r, nil, nil)
	return r
}

// Mount registra as rotas em r. `admit` envolve as rotas de admissão
// (desafio, caminho, pedido); `poll` envolve a consulta de resultado, que
// costuma ter um orçamento mais folgado. Qualquer um pode ser nil.
func (a *API) Mount(r chi.Router, admit, poll func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if admit != nil {
			r.Use(admit)
		}
		r.Get("/challenge", a.handleChallenge)
		r.Get("/path", a.handlePath)
		r.Post("/{token}/order", a.handleOrder)
	})
	r.Group(func(r chi.Router) {
		if poll != nil {
			r.Use(poll)
		}
		r.Get("/result", a.handleResult)
	})
}

// buyerAndItem extrai a dupla obrigatória de toda rota do pipeline. Retorna
// false depois de já ter escrito a rejeição na resposta.
func buyerAndItem(w http.ResponseWriter, r *http.Request) (domain.BuyerID, domain.ItemID, bool) {
	buyerID, ok := access.BuyerFromContext(r.Context())
	if !ok || buyerID == "" {
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeSessionError, Msg: "session required"})
		return "", "", false
	}
	item := r.URL.Query().Get("item")
	if item == "" {
		writeBusiness(w, CodeRequestIllegal, "missing item")
		return "", "", false
	}
	return domain.BuyerID(buyerID), domain.ItemID(item), true
}

func (a *API) handleChallenge(w http.ResponseWriter, r *http.Request) {
	buyer, item, ok := buyerAndItem(w, r)
	if !ok {
		return
	}

	ch, err := a.Challenges.Issue(r.Context(), buyer, item)
	if err != nil {
		log.Printf("seckill: issue challenge for %s/%s: %v", buyer, item, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeServerError, Msg: "server error"})
		return
	}

	writeOK(w, map[string]interface{}{
		"challenge":   ch.Text,
		"ttl_seconds": int(ch.TTL.Seconds()),
	})
}

func (a *API) handlePath(w http.ResponseWriter, r *http.Request) {
	buyer, item, ok := buyerAndItem(w, r)
	if !ok {
		return
	}

	answer, err := strconv.ParseInt(r.URL.Query().Get("answer"), 10, 64)
	if err != nil {
		writeBusiness(w, CodeRequestIllegal, "missing or malformed answer")
		return
	}

	passed, err := a.Challenges.Verify(r.Context(), buyer, item, answer)
	if err != nil {
		log.Printf("seckill: verify challenge for %s/%s: %v", buyer, item, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeServerError, Msg: "server error"})
		return
	}
	if !passed {
		writeBusiness(w, CodeRequestIllegal, "challenge failed")
		return
	}

	token, err := a.Tokens.Issue(r.Context(), buyer, item)
	if err != nil {
		log.Printf("seckill: issue path token for %s/%s: %v", buyer, item, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeServerError, Msg: "server error"})
		return
	}

	writeOK(w, map[string]interface{}{"path": token})
}

func (a *API) handleOrder(w http.ResponseWriter, r *http.Request) {
	buyer, item, ok := buyerAndItem(w, r)
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")

	status, err := a.Orders.Submit(r.Context(), buyer, item, token)
	if err != nil {
		log.Printf("seckill: submit for %s/%s: %v", buyer, item, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeServerError, Msg: "server error"})
		return
	}

	switch status {
	case application.SubmitQueued:
		writeOK(w, map[string]interface{}{"status": "queued"})
	case application.SubmitSoldOut:
		writeBusiness(w, CodeSoldOut, "sold out")
	default:
		writeBusiness(w, CodeRequestIllegal, "invalid purchase path")
	}
}

func (a *API) handleResult(w http.ResponseWriter, r *http.Request) {
	buyer, item, ok := buyerAndItem(w, r)
	if !ok {
		return
	}

	result, err := a.Orders.Result(r.Context(), buyer, item)
	if err != nil {
		log.Printf("seckill: result for %s/%s: %v", buyer, item, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeServerError, Msg: "server error"})
		return
	}

	writeOK(w, map[string]interface{}{"result": result})
}
