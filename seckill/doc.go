// Package seckill expõe o pipeline de venda relâmpago por HTTP.
//
// O fluxo do comprador tem quatro paradas, nesta ordem:
//
//  1. GET  /seckill/challenge  -> recebe o desafio aritmético
//  2. GET  /seckill/path       -> troca a resposta certa por um token de rota
//  3. POST /seckill/{token}/order -> enfileira a intenção de compra
//  4. GET  /seckill/result     -> poll do desfecho (order id, esgotado, pendente)
//
// Toda resposta carrega o envelope {code, msg, data}. Código 0 é sucesso;
// os demais são estáveis e fazem parte do contrato com os clientes.
//
// O adapter assume que um middleware de admissão já resolveu a identidade do
// comprador e a colocou no contexto da requisição.
package seckill
