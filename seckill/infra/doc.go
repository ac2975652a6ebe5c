// Package infra contém as implementações concretas dos colaboradores da
// venda-relâmpago definidos no pacote domain.
//
// Cada colaborador tem um par Redis/memória (ou Postgres/memória, no caso do
// diário de pedidos): a versão de produção compartilha estado entre instâncias;
// a de memória serve testes e desenvolvimento com o mesmo contrato.
//
//   - RedisKV / MemoryKV: keyed store com expiração (desafio, token, sessão)
//   - RedisLedger / MemoryLedger: estoque com decremento-se-positivo atômico
//     e trava one-way de esgotado
//   - RedisQueue / MemoryQueue: fila at-least-once, FIFO por produtor
//   - PostgresJournal / MemoryJournal: diário de pedidos com unicidade por
//     (comprador, item)
package infra
