package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	values   map[string]int64
	ttls     map[string]time.Duration
	failGet  error
	failExec error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(v, 10), nil)
}

// TxPipelined queues the commands and applies all of them, or none when
// failExec is set.
func (f *fakeCounter) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	pipe := &fakePipe{}
	if err := fn(pipe); err != nil {
		return nil, err
	}
	if f.failExec != nil {
		return nil, f.failExec
	}
	for _, op := range pipe.ops {
		op(f)
	}
	return nil, nil
}

// fakePipe implements the two pipeline commands the limiter queues. Any
// other Pipeliner method panics on the nil embedded interface.
type fakePipe struct {
	redis.Pipeliner
	ops []func(*fakeCounter)
}

func (p *fakePipe) Incr(_ context.Context, key string) *redis.IntCmd {
	p.ops = append(p.ops, func(f *fakeCounter) { f.values[key]++ })
	return redis.NewIntResult(0, nil)
}

func (p *fakePipe) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	p.ops = append(p.ops, func(f *fakeCounter) {
		if _, ok := f.ttls[key]; !ok {
			f.ttls[key] = ttl
		}
	})
	return redis.NewBoolResult(false, nil)
}

func (f *fakeCounter) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

func TestLoginLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	l := NewLoginLimiter(fc, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "a@x.io")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
		require.NoError(t, l.Fail(ctx, "a@x.io"))
	}

	ok, err := l.Allow(ctx, "a@x.io")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "b@x.io")
	require.NoError(t, err)
	assert.True(t, ok, "other emails are unaffected")
}

func TestLoginLimiter_WindowSetOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	l := NewLoginLimiter(fc, 5, 2*time.Minute)

	require.NoError(t, l.Fail(ctx, "a@x.io"))
	assert.Equal(t, 2*time.Minute, fc.ttls["login:fail:a@x.io"])

	fc.ttls["login:fail:a@x.io"] = time.Second
	require.NoError(t, l.Fail(ctx, "a@x.io"))
	assert.Equal(t, time.Second, fc.ttls["login:fail:a@x.io"], "later failures must not extend the window")
}

func TestLoginLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	l := NewLoginLimiter(fc, 1, time.Minute)

	require.NoError(t, l.Fail(ctx, "a@x.io"))
	ok, err := l.Allow(ctx, "a@x.io")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "a@x.io"))
	ok, err = l.Allow(ctx, "a@x.io")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginLimiter_Defaults(t *testing.T) {
	l := NewLoginLimiter(newFakeCounter(), 0, 0)
	assert.Equal(t, defaultMaxAttempts, l.maxAttempts)
	assert.Equal(t, defaultWindow, l.window)
}

func TestLoginLimiter_GetErrorPropagates(t *testing.T) {
	fc := newFakeCounter()
	fc.failGet = errors.New("connection refused")
	l := NewLoginLimiter(fc, 5, time.Minute)

	_, err := l.Allow(context.Background(), "a@x.io")
	require.Error(t, err)
	assert.ErrorIs(t, err, fc.failGet)
}

func TestLoginLimiter_FailIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	fc.failExec = errors.New("EXECABORT")
	l := NewLoginLimiter(fc, 5, time.Minute)

	err := l.Fail(ctx, "a@x.io")
	require.ErrorIs(t, err, fc.failExec)
	assert.NotContains(t, fc.values, "login:fail:a@x.io", "counter must not exist without its TTL")
	assert.NotContains(t, fc.ttls, "login:fail:a@x.io")
}

func TestLoginLimiter_FailRestoresMissingTTL(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	fc.values["login:fail:a@x.io"] = 2
	l := NewLoginLimiter(fc, 5, time.Minute)

	require.NoError(t, l.Fail(ctx, "a@x.io"))
	assert.Equal(t, int64(3), fc.values["login:fail:a@x.io"])
	assert.Equal(t, time.Minute, fc.ttls["login:fail:a@x.io"])
}

func TestConfig_Options(t *testing.T) {
	opts := Config{Addr: "cache:6379", Password: "pw", DB: 2, PoolSize: 7, ClientName: "storefront"}.options()

	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, "storefront", opts.ClientName)
	assert.Equal(t, defaultTimeout, opts.DialTimeout)
	assert.Equal(t, defaultTimeout, opts.ReadTimeout)

	opts = Config{Addr: "cache:6379", Timeout: time.Second}.options()
	assert.Equal(t, time.Second, opts.WriteTimeout)
}

func TestConnect_RequiresAddress(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	require.Error(t, err)
}
