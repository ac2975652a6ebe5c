// Package application contém os casos de uso da venda-relâmpago: emissão e
// verificação do desafio aritmético, token de caminho de submissão, entrada na
// fila de compra, worker de fulfillment e consulta tri-estado do resultado.
//
// Ele depende apenas do pacote domain e não conhece net/http nem Redis.
package application
