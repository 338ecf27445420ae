package fault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsKind(t *testing.T) {
	err := Conflictf("member %d already has an Active subscription", 1)
	require.True(t, IsKind(err, KindConflict))
	require.False(t, IsKind(err, KindNotFound))
	require.False(t, IsKind(nil, KindConflict))
	require.False(t, IsKind(errors.New("plain"), KindConflict))
}

func TestStoreWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Store(cause, "Cannot fetch subscription")
	require.True(t, IsKind(err, KindStore))
	require.True(t, errors.Is(err, cause))
	require.Contains(t, err.Error(), "Cannot fetch subscription")
}
