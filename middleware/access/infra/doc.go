// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - RedisCounterStore: janela fixa compartilhada via INCR + EXPIRE NX
//   - MemoryCounterStore: janela fixa em memória, para testes/desenvolvimento
//   - BucketGuard: token bucket local por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
package infra
