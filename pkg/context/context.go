// Package context carries request-scoped identity values. Every repository
// query is tenant-scoped, so the tenant id set here is the root of data
// isolation for the whole request.
package context

import "context"

type contextKey string

const (
	requestIDKey = contextKey("request_id")
	tenantIDKey  = contextKey("tenant_id")
	userIDKey    = contextKey("user_id")
)

func stringValue(ctx context.Context, key contextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// SetTenantID stores the tenant owning the request. Handlers reject requests
// where this comes back empty.
func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}
