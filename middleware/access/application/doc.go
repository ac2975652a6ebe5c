// Package application contém os casos de uso (regras de aplicação) do controle
// de acesso: decisão allow/deny por janela fixa e aquisição de vaga com timeout.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Admit(ctx, key) retorna uma Decision (allow/deny + retry-after).
package application
