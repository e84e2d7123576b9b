package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordSetAndMatch(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("s3cret-password"))
	assert.NotEmpty(t, p.Hash)
	assert.NotEqual(t, "s3cret-password", p.Hash)

	ok, err := p.Matches("s3cret-password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Matches("wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "PROCESSING", "SHIPPED", "DELIVERED", "CANCELLED", "REFUNDED"} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("pending"))
	assert.False(t, ValidOrderStatus("UNKNOWN"))
	assert.False(t, ValidOrderStatus(""))
}
