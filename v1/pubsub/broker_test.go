package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	id string
	n  int
}

func TestBroker_DeliversInOrder(t *testing.T) {
	b := NewBroker[change](4)
	a := b.Subscribe(context.Background())
	c := b.Subscribe(context.Background())

	dropped := b.Publish(change{"t1", 1}, change{"t1", 2})
	assert.Zero(t, dropped)

	for _, ch := range []<-chan change{a, c} {
		assert.Equal(t, change{"t1", 1}, <-ch)
		assert.Equal(t, change{"t1", 2}, <-ch)
	}
}

func TestBroker_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker[int](1)
	slow := b.Subscribe(context.Background())

	assert.Equal(t, 0, b.Publish(1))
	assert.Equal(t, 2, b.Publish(2, 3))
	assert.Equal(t, 1, <-slow)
}

func TestBroker_SubscriptionEndsWithContext(t *testing.T) {
	b := NewBroker[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	require.Equal(t, 1, b.Subscribers())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, 0, b.Publish(1))
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker[string](1)
	ch := b.Subscribe(context.Background())

	b.Close()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late := b.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish("ignored"))
}
