package users

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	u := &User{FirstName: "Asha", Email: "asha@example.com"}
	require.Error(t, u.Password.Compare(""))

	require.NoError(t, u.Password.Set("momo-lover-42"))
	require.NoError(t, u.Password.Compare("momo-lover-42"))
	require.Error(t, u.Password.Compare("momo-lover-43"))

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "password")
	require.NotContains(t, string(raw), "momo-lover")
}
