package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"flashsale-gateway/seckill/domain"
)

// ChallengeService emite e verifica o desafio aritmético que o comprador
// resolve antes de ganhar o token de submissão.
//
// O desafio tem três operandos de um dígito e dois operadores de {+, -, *};
// a resposta é avaliada com precedência padrão (× antes de +/−), nunca por
// dobra ingênua da esquerda para a direita.
type ChallengeService struct {
	Store domain.KVStore

	// TTL do desafio. Default: 60s.
	TTL time.Duration

	// IntN permite injetar aleatoriedade determinística nos testes.
	// Default: math/rand/v2.
	IntN func(n int) int
}

var challengeOps = []byte{'+', '-', '*'}

// Issue gera um desafio novo para o par, sobrescrevendo qualquer anterior.
func (s ChallengeService) Issue(ctx context.Context, buyer domain.BuyerID, item domain.ItemID) (domain.Challenge, error) {
	intn := s.IntN
	if intn == nil {
		intn = rand.IntN
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	nums := [3]int64{int64(intn(10)), int64(intn(10)), int64(intn(10))}
	ops := [2]byte{challengeOps[intn(3)], challengeOps[intn(3)]}

	text := fmt.Sprintf("%d%c%d%c%d", nums[0], ops[0], nums[1], ops[1], nums[2])
	answer := evalChallenge(nums, ops)

	key := pairKey(challengeKeyPrefix, buyer, item)
	if err := s.Store.Set(ctx, key, strconv.FormatInt(answer, 10), ttl); err != nil {
		return domain.Challenge{}, fmt.Errorf("challenge: store answer: %w", err)
	}
	return domain.Challenge{Text: text, TTL: ttl}, nil
}

// Verify compara a resposta enviada com a esperada. A tentativa é single-shot:
// o desafio é apagado na leitura, acerte ou erre. Sem retry-until-success.
func (s ChallengeService) Verify(ctx context.Context, buyer domain.BuyerID, item domain.ItemID, answer int64) (bool, error) {
	key := pairKey(challengeKeyPrefix, buyer, item)

	stored, ok, err := s.Store.GetDel(ctx, key)
	if err != nil {
		return false, fmt.Errorf("challenge: load answer: %w", err)
	}
	if !ok {
		// ausente ou expirado: não há desafio ativo
		return false, nil
	}

	want, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return false, nil
	}
	return want == answer, nil
}

// evalChallenge avalia n0 op0 n1 op1 n2 com precedência: primeiro os '*',
// depois +/- da esquerda para a direita.
func evalChallenge(nums [3]int64, ops [2]byte) int64 {
	vals := []int64{nums[0], nums[1], nums[2]}
	rest := []byte{ops[0], ops[1]}

	for i := 0; i < len(rest); {
		if rest[i] != '*' {
			i++
			continue
		}
		vals[i] *= vals[i+1]
		vals = append(vals[:i+1], vals[i+2:]...)
		rest = append(rest[:i], rest[i+1:]...)
	}

	acc := vals[0]
	for i, op := range rest {
		if op == '+' {
			acc += vals[i+1]
		} else {
			acc -= vals[i+1]
		}
	}
	return acc
}
