package application

import "flashsale-gateway/seckill/domain"

// Prefixos das chaves no keyed store. Um par (comprador, item) tem no máximo
// um desafio e um token vivos: reemissão sobrescreve.
const (
	challengeKeyPrefix = "seckill:vc:"
	pathKeyPrefix      = "seckill:path:"
	sessionKeyPrefix   = "seckill:session:"
)

func pairKey(prefix string, buyer domain.BuyerID, item domain.ItemID) string {
	return prefix + string(buyer) + "_" + string(item)
}
