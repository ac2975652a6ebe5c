package application

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"flashsale-gateway/seckill/domain"

	"github.com/google/uuid"
)

// PathTokenService emite a credencial única de submissão: o cliente só conhece
// o caminho real da compra depois de resolver o desafio, o que impede POST
// direto num endpoint previsível.
//
// O token é um UUID aleatório passado por hash one-way com um segmento de salt
// fixo: imprevisível e resistente a colisão, sem relação com nada do pedido.
type PathTokenService struct {
	Store domain.KVStore

	// TTL do token. Default: 60s.
	TTL time.Duration

	// Salt é o segmento fixo misturado no hash. Default: defaultPathSalt.
	Salt string

	// AllowReuse mantém o comportamento antigo de não consumir o token no uso.
	// O default (false) invalida o token na primeira verificação que confere;
	// replay não consegue nem reenfileirar intenções redundantes.
	AllowReuse bool
}

const defaultPathSalt = "flashsale-path-salt"

// Issue gera e guarda um token novo para o par, sobrescrevendo o anterior.
func (s PathTokenService) Issue(ctx context.Context, buyer domain.BuyerID, item domain.ItemID) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	salt := s.Salt
	if salt == "" {
		salt = defaultPathSalt
	}

	sum := sha256.Sum256([]byte(uuid.NewString() + salt))
	token := hex.EncodeToString(sum[:])

	key := pairKey(pathKeyPrefix, buyer, item)
	if err := s.Store.Set(ctx, key, token, ttl); err != nil {
		return "", fmt.Errorf("pathtoken: store token: %w", err)
	}
	return token, nil
}

// Verify confere o token apresentado contra o guardado para o par.
// Ausência, expiração ou divergência => false.
func (s PathTokenService) Verify(ctx context.Context, buyer domain.BuyerID, item domain.ItemID, supplied string) (bool, error) {
	key := pairKey(pathKeyPrefix, buyer, item)

	stored, ok, err := s.Store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("pathtoken: load token: %w", err)
	}
	if !ok || supplied == "" {
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return false, nil
	}

	if !s.AllowReuse {
		// uso único: apagar depois do match fecha a janela de replay
		if err := s.Store.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("pathtoken: consume token: %w", err)
		}
	}
	return true, nil
}
