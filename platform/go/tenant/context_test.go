package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScopeRoundTripsThroughContext(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	scope := For(uuid.New())
	got, ok := FromContext(WithScope(context.Background(), scope))
	require.True(t, ok)
	require.Equal(t, scope, got)
}

func TestScopeOwns(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	other := uuid.New()

	require.True(t, For(owner).Owns(owner))
	require.False(t, For(owner).Owns(other))
	require.True(t, Admin(owner).Owns(other))
}

func TestDerive(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	scope, err := Derive(" "+id.String()+" ", true)
	require.NoError(t, err)
	require.Equal(t, id, scope.TenantID)
	require.True(t, scope.Privileged)

	_, err = Derive("", false)
	require.ErrorIs(t, err, ErrMissingIdentity)

	_, err = Derive(uuid.Nil.String(), false)
	require.ErrorIs(t, err, ErrMissingIdentity)

	_, err = Derive("not-a-uuid", false)
	require.Error(t, err)
}

func TestShortID(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.Equal(t, "0f8fad5b", ShortID(id))
}
