package race

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_OperationWins(t *testing.T) {
	v, err := Run(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRun_PropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestRun_TimeoutCancelsAbandonedOperation(t *testing.T) {
	var lateEffects atomic.Int32
	opCancelled := make(chan struct{})

	start := time.Now()
	_, err := Run(context.Background(), 50*time.Millisecond, func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			close(opCancelled)
			return 0, ctx.Err()
		case <-time.After(10 * time.Second):
			lateEffects.Add(1)
			return 1, nil
		}
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)

	select {
	case <-opCancelled:
	case <-time.After(time.Second):
		t.Fatal("abandoned operation was not cancelled")
	}
	assert.Equal(t, int32(0), lateEffects.Load())
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestRun_AlreadyCancelledContextSkipsOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	_, err := Run(ctx, time.Second, func(ctx context.Context) (int, error) {
		called.Store(true)
		return 0, nil
	})
	assert.True(t, IsCancelled(err))
	assert.False(t, called.Load())
}

func TestRun_NoTimeout(t *testing.T) {
	err := Do(context.Background(), 0, func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	assert.NoError(t, err)
}

func TestToken(t *testing.T) {
	tok := NewToken(context.Background())
	assert.False(t, tok.Cancelled())

	fired := make(chan struct{})
	tok.OnCancel(func() { close(fired) })

	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.Cancelled())
	assert.Error(t, tok.Context().Err())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("OnCancel callback did not run")
	}
}

func TestToken_StopBeforeCancel(t *testing.T) {
	tok := NewToken(context.Background())
	var ran atomic.Bool
	stop := tok.OnCancel(func() { ran.Store(true) })

	assert.True(t, stop())
	tok.Cancel()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestToken_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	tok := NewToken(parent)
	cancel()
	assert.True(t, tok.Cancelled())
}

func TestRunOwned_ReleasesLateValue(t *testing.T) {
	released := make(chan int, 1)
	proceed := make(chan struct{})

	_, err := RunOwned(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-proceed
		return 7, nil
	}, func(v int) { released <- v })
	require.ErrorIs(t, err, ErrTimeout)

	close(proceed)
	select {
	case v := <-released:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("late value was not released")
	}
}

func TestRunOwned_KeepsWinningValue(t *testing.T) {
	v, err := RunOwned(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 3, nil
	}, func(int) { t.Error("winning value must not be released") })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
