package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern records the matched chi route pattern so downstream
// middleware can label metrics and spans with /parts/{partId} instead of
// the raw URL.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored pattern, or "" before routing.
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}
