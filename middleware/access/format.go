// utilitário pequeno para respostas e formatação consistentes do middleware.
// Os códigos numéricos são estáveis (contrato de máquina com os clientes);
// o texto é só para humanos.

package access

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Códigos de máquina das rejeições de admissão.
const (
	CodeSessionError       = 500101 // rota exige identidade e o chamador é anônimo
	CodeAccessLimitReached = 500104 // estourou a janela ou o token bucket local
	CodeTryAgain           = 500105 // infraestrutura indisponível; tente de novo
	CodeTooManyInFlight    = 500106 // sem vaga de concorrência na rota
)

type rejection struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func render(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{Code: code, Msg: msg})
}

func formatInt(v int) string { return strconv.Itoa(v) }
