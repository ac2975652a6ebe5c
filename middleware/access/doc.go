// Package access fornece o adapter HTTP (net/http) do controle de admissão do
// gateway de venda-relâmpago: identidade, rate limit por janela fixa e limite
// de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (admissão por janela, aquisição de vaga) sem net/http
//   - infra: implementações concretas (contador Redis/memória, token bucket local,
//     semáforo, estatísticas), detalhes de infraestrutura
//   - access (este pacote): middleware HTTP + extração de credencial/chave +
//     tradução para status/headers/JSON
//
// Fluxo por requisição:
//
//  1. Resolve a identidade do comprador a partir da credencial (header/cookie)
//  2. Rejeita anônimos quando a política exige identidade
//  3. Segura rajadas locais com o token bucket (opcional)
//  4. Conta a observação na janela fixa compartilhada e decide allow/deny
//  5. Se negado, responde 429 com código de máquina; se o store caiu, a política
//     escolhe fail-open/fail-closed (padrão: negar com "tente de novo")
//  6. Se permitido, injeta o comprador no contexto e chama o próximo handler
package access
