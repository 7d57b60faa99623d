package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDirectory_FixedList(t *testing.T) {
	d := NewStaticDirectory("Jane Roe", "John Doe")
	ctx := context.Background()

	ok, err := d.Validate(ctx, "Jane Roe")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Validate(ctx, "Stranger")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticDirectory_EmptyAcceptsAnyName(t *testing.T) {
	d := NewStaticDirectory()
	ctx := context.Background()

	ok, err := d.Validate(ctx, "Anyone")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Validate(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}
