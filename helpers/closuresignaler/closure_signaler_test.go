package closuresignaler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClosureSignalerClosesOnce(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.False(t, c.IsClosed())

	require.True(t, c.Close(ctx))
	require.False(t, c.Close(ctx))
	require.True(t, c.IsClosed())

	select {
	case <-c.CloseChan():
	default:
		t.Fatal("CloseChan is expected to be closed")
	}
}
