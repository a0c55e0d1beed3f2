package decorate

import (
	"context"
	"fmt"
	"slices"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
)

// Principal identifies the caller of a decorated function.
type Principal struct {
	ID    string
	Roles []string
}

// HasRole reports whether p holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal carried by ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequireAuthenticated rejects calls whose context carries no principal
// with errors.ErrUnauthenticated.
func RequireAuthenticated[T any]() Decorator[T] {
	return authorize[T](func(Principal) error { return nil })
}

// RequireRole rejects calls from principals lacking role with
// errors.ErrForbidden, and anonymous calls with errors.ErrUnauthenticated.
func RequireRole[T any](role string) Decorator[T] {
	return authorize[T](func(p Principal) error {
		if !p.HasRole(role) {
			return fmt.Errorf("%w: %q lacks role %q", perrors.ErrForbidden, p.ID, role)
		}
		return nil
	})
}

func authorize[T any](check func(Principal) error) Decorator[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			var zero T
			p, ok := PrincipalFrom(ctx)
			if !ok {
				return zero, perrors.ErrUnauthenticated
			}
			if err := check(p); err != nil {
				return zero, err
			}
			return next(ctx)
		}
	}
}
