package organization

import "context"

type ctxKey string

const contextOrgKey ctxKey = "organization"

func ContextWithOrganization(ctx context.Context, org *Organization) context.Context {
	return context.WithValue(ctx, contextOrgKey, org)
}

func FromContext(ctx context.Context) (*Organization, bool) {
	org, ok := ctx.Value(contextOrgKey).(*Organization)
	return org, ok
}
