package transport

import (
	"context"
	"testing"
	"time"

	"github.com/gochain/utxonode/pkg/gossip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoTransportsExchangeAPingOverGossipsub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inboundA := make(chan gossip.Envelope, 8)
	inboundB := make(chan gossip.Envelope, 8)

	a, err := New(ctx, 0, inboundA)
	require.NoError(t, err)
	defer a.Close()

	b, err := New(ctx, 0, inboundB)
	require.NoError(t, err)
	defer b.Close()

	require.NotEmpty(t, b.Addrs())
	require.NoError(t, a.Connect(b.Addrs()[0]))

	// give gossipsub's mesh a moment to form after the direct connect
	time.Sleep(500 * time.Millisecond)

	ping := gossip.Ping(42).Encode()
	require.NoError(t, a.Broadcast(ping))

	select {
	case env := <-inboundB:
		msg, err := gossip.Decode(env.Payload)
		require.NoError(t, err)
		assert.Equal(t, gossip.KindPing, msg.Kind)
		assert.Equal(t, uint64(42), msg.Nonce)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for b to receive the broadcast ping")
	}
}
