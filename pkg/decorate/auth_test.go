package decorate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/vnykmshr/pace/pkg/common/errors"
)

func TestPrincipalRoundTrip(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: "ada", Roles: []string{"admin"}})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "ada", p.ID)
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("auditor"))
}

func TestRequireRole(t *testing.T) {
	fn := Chain(constant("secret"), RequireRole[string]("admin"))

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"anonymous", context.Background(), perrors.ErrUnauthenticated},
		{"missing role", WithPrincipal(context.Background(), Principal{ID: "bob", Roles: []string{"user"}}), perrors.ErrForbidden},
		{"no roles", WithPrincipal(context.Background(), Principal{ID: "eve"}), perrors.ErrForbidden},
		{"admin", WithPrincipal(context.Background(), Principal{ID: "ada", Roles: []string{"user", "admin"}}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := fn(tt.ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "secret", v)
		})
	}
}

func TestRequireAuthenticated(t *testing.T) {
	fn := Chain(constant(1), RequireAuthenticated[int]())

	_, err := fn(context.Background())
	assert.ErrorIs(t, err, perrors.ErrUnauthenticated)

	v, err := fn(WithPrincipal(context.Background(), Principal{ID: "guest"}))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
