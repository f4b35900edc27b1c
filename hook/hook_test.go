package hook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agentloom/agentcore/toolerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterResume(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	wait, err := r.Register(ctx, "h1", "approval", "draft text", Options{})
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() { done <- wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Resume("h1", map[string]any{"approved": true}))

	out := <-done
	assert.Equal(t, StatusResolved, out.Status)
	assert.Equal(t, map[string]any{"approved": true}, out.Result)

	inst, ok := r.Get("h1")
	require.True(t, ok)
	assert.Equal(t, StatusResolved, inst.Status)
}

func TestRegisterDuplicateID(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	_, err := r.Register(ctx, "dup", "n", nil, Options{})
	require.NoError(t, err)
	_, err = r.Register(ctx, "dup", "n", nil, Options{})
	assert.Error(t, err)
}

func TestReject(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	wait, err := r.Register(ctx, "h2", "approval", nil, Options{})
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() { done <- wait(ctx) }()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Reject("h2", "no"))

	out := <-done
	assert.Equal(t, StatusRejected, out.Status)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "no")
	assert.True(t, toolerrors.Is(out.Err, toolerrors.KindHookRejected))
}

func TestResumeNotPending(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	_, err := r.Register(ctx, "h3", "n", nil, Options{})
	require.NoError(t, err)
	require.NoError(t, r.Resume("h3", "x"))

	err = r.Resume("h3", "y")
	require.Error(t, err)
	assert.True(t, toolerrors.Is(err, toolerrors.KindHookNotPending))
}

func TestResumeUnknown(t *testing.T) {
	r := New(nil)
	err := r.Resume("nope", "x")
	require.Error(t, err)
	assert.True(t, toolerrors.Is(err, toolerrors.KindHookNotFound))
}

// TestValidatorRollback covers spec §4.2: a failing validator must roll
// the status back to pending and leave the future unresolved.
func TestValidatorRollback(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	wantErr := errors.New("schema mismatch")
	wait, err := r.Register(ctx, "h4", "n", nil, Options{
		Validate: func(result any) error { return wantErr },
	})
	require.NoError(t, err)

	err = r.Resume("h4", "bad")
	require.ErrorIs(t, err, wantErr)

	inst, ok := r.Get("h4")
	require.True(t, ok)
	assert.Equal(t, StatusPending, inst.Status)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	out := wait(waitCtx)
	assert.Equal(t, StatusPending, out.Status)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

// TestTimeoutDefault covers S7: a hook with a timeout and default value
// resolves to that default, and a subsequent Resume fails not-pending.
func TestTimeoutDefault(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	wait, err := r.Register(ctx, "h5", "x", nil, Options{
		TimeoutMs:    50,
		DefaultValue: map[string]any{"v": 1},
	})
	require.NoError(t, err)

	out := wait(ctx)
	assert.Equal(t, StatusTimedOut, out.Status)
	assert.Equal(t, map[string]any{"v": 1}, out.Result)

	err = r.Resume("h5", "late")
	require.Error(t, err)
	assert.True(t, toolerrors.Is(err, toolerrors.KindHookNotPending))
}

// TestNoDoubleResolve is the concurrency property §8.2: a race between
// Resume and timer expiry must produce exactly one terminal transition.
func TestNoDoubleResolve(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := New(nil)
		ctx := context.Background()
		wait, err := r.Register(ctx, "race", "x", nil, Options{
			TimeoutMs:    5,
			DefaultValue: "default",
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var resumeErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			resumeErr = r.Resume("race", "resumed")
		}()
		out := wait(ctx)
		wg.Wait()

		// Exactly one terminal transition is observable: either Resume
		// won (out.Status == Resolved, resumeErr == nil) or the timeout
		// won (out.Status == TimedOut, resumeErr is hook-not-pending).
		if resumeErr == nil {
			assert.Equal(t, StatusResolved, out.Status)
		} else {
			assert.True(t, toolerrors.Is(resumeErr, toolerrors.KindHookNotPending))
			assert.Equal(t, StatusTimedOut, out.Status)
		}
	}
}

func TestClear(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	_, err := r.Register(ctx, "a", "n", nil, Options{})
	require.NoError(t, err)
	r.Clear()
	assert.Empty(t, r.List())
}

func TestFactoryWaitAndWebhook(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	f := Define(r, Definition{Name: "approval", TimeoutMs: 200, DefaultValue: false})

	go func() {
		time.Sleep(10 * time.Millisecond)
		list := r.List(StatusPending)
		require.Len(t, list, 1)
		require.NoError(t, r.Resume(list[0].ID, true))
	}()
	out, err := f.Wait(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, true, out.Result)

	wh, err := CreateWebhook(r, ctx, WebhookOptions{Name: "wh", URLBase: "https://example.com/hooks"})
	require.NoError(t, err)
	assert.Contains(t, wh.URL, "https://example.com/hooks/hook-wh-")
	require.NoError(t, Resume(r, wh.ID, "ok"))
	out = wh.Wait(ctx)
	assert.Equal(t, StatusResolved, out.Status)
}

func TestNewIDUniqueUnderConcurrency(t *testing.T) {
	r := New(nil)
	const n = 500
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.NewID("x")
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
