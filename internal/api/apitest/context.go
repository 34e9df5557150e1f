package apitest

import "context"

type accountKey struct{}

func withAccount(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acc)
}

func accountFrom(ctx context.Context) (Account, bool) {
	acc, ok := ctx.Value(accountKey{}).(Account)
	return acc, ok
}
