package resolver

import "context"

type bootstrappingKey struct{}

// withBootstrapping marks ctx as belonging to a comparator load. The mark
// lives exactly as long as the returned context is in use.
func withBootstrapping(ctx context.Context) context.Context {
	return context.WithValue(ctx, bootstrappingKey{}, true)
}

// IsBootstrapping reports whether ctx descends from a comparator load.
func IsBootstrapping(ctx context.Context) bool {
	b, _ := ctx.Value(bootstrappingKey{}).(bool)
	return b
}
