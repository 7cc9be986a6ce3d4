package orm

import (
	"context"
)

// Operation names passed to QueryInterceptor.OnQuery.
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpUpdateMany = "updateMany"
	OpFindMany   = "findMany"
	OpFindFirst  = "findFirst"
	OpFindUnique = "findUnique"
	OpCount      = "count"
	OpDelete     = "delete"
	OpDeleteMany = "deleteMany"
)

// Action is the kind of entity mutation reported to observers.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Plugin is anything registered with Client.Use. A plugin implements
// QueryInterceptor, MutationObserver, or both.
type Plugin interface {
	ID() string
}

// Proceed runs the rest of the interceptor chain, ending in the operation itself.
type Proceed func(ctx context.Context, args any) (any, error)

// QueryContext describes the model operation being intercepted.
type QueryContext struct {
	Model     string
	Operation string
	// Args is the operation's argument struct (*CreateArgs, *UpdateArgs, *Query).
	Args   any
	Auth   *Auth
	Client *Client
}

// QueryInterceptor wraps every model operation.
//
// Interceptors run in registration order, the first registered outermost.
// An interceptor may pass different args to proceed, or not call it at all.
type QueryInterceptor interface {
	Plugin
	OnQuery(ctx context.Context, q QueryContext, proceed Proceed) (any, error)
}

// MutationArgs describes one entity write.
type MutationArgs struct {
	Model     string
	Action    Action
	QueryNode QueryNode
	Auth      *Auth
}

// MutationObserver is notified after each successful create, update or delete
// statement, nested association writes included.
type MutationObserver interface {
	Plugin
	AfterEntityMutation(ctx context.Context, args MutationArgs)
}

// hookState travels in the statement context so the GORM callbacks, which are
// shared by every client on the same *gorm.DB, see this client's plugins.
type hookState struct {
	observers []MutationObserver
	auth      *Auth
}

type hookStateKey struct{}

func withHookState(ctx context.Context, st *hookState) context.Context {
	return context.WithValue(ctx, hookStateKey{}, st)
}

func hookStateFrom(ctx context.Context) (*hookState, bool) {
	if ctx == nil {
		return nil, false
	}
	st, ok := ctx.Value(hookStateKey{}).(*hookState)
	return st, ok && st != nil
}
