// Package domain define os tipos e contratos da venda-relâmpago: desafio
// aritmético, token de submissão, razão de estoque, diário de pedidos e fila
// de intenções de compra.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
