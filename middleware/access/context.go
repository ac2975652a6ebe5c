package access

import "context"

type ctxKey int

const buyerKey ctxKey = iota

// WithBuyer devolve um contexto carregando o comprador resolvido.
func WithBuyer(ctx context.Context, buyerID string) context.Context {
	return context.WithValue(ctx, buyerKey, buyerID)
}

// BuyerFromContext devolve o comprador resolvido pela admissão.
// ok=false significa chamador anônimo.
func BuyerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(buyerKey).(string)
	return id, ok && id != ""
}
