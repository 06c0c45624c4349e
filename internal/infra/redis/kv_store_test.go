package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"study-session/internal/app"
	"study-session/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestKVStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewKVStore(newClient(mr), "study:", time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "quizResults"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Set(ctx, "quizResults", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("study:quizResults") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("study:quizResults"); ttl != time.Minute {
		t.Fatalf("expected ttl of a minute, got %v", ttl)
	}

	got, err := store.Get(ctx, "quizResults")
	if err != nil || string(got) != "[]" {
		t.Fatalf("expected stored value, got %q err=%v", got, err)
	}

	if err := store.Delete(ctx, "quizResults"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("study:quizResults") {
		t.Fatalf("expected redis key to be removed")
	}
}

// gateHook holds GET commands until release is closed.
type gateHook struct {
	entered chan struct{}
	release chan struct{}
}

func (h gateHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h gateHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "get" {
			select {
			case h.entered <- struct{}{}:
			default:
			}
			<-h.release
		}
		return next(ctx, cmd)
	}
}

func (h gateHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestKVStoreGetCancellationIsPerCaller(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	_ = mr.Set("study:quizResults", "[]")

	client := newClient(mr)
	hook := gateHook{entered: make(chan struct{}, 1), release: make(chan struct{})}
	client.AddHook(hook)
	store := NewKVStore(client, "study:", 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.Get(firstCtx, "quizResults")
		firstErr <- err
	}()
	<-hook.entered

	type outcome struct {
		val []byte
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		val, err := store.Get(context.Background(), "quizResults")
		second <- outcome{val, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled first caller, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("canceled caller kept waiting")
	}

	close(hook.release)
	select {
	case got := <-second:
		if got.err != nil || string(got.val) != "[]" {
			t.Fatalf("expected second caller to get the value, got %q err=%v", got.val, got.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("second caller never returned")
	}
}

func TestLedgerOnRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := app.NewLedger(NewKVStore(newClient(mr), "study:", 0))
	for i := 0; i < app.LedgerCapacity+3; i++ {
		if err := ledger.Append(ctx, domain.NewQuizResult(time.Now(), 5, i%6)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if n := len(ledger.LoadAll(ctx)); n != app.LedgerCapacity {
		t.Fatalf("expected %d entries, got %d", app.LedgerCapacity, n)
	}

	mr.Set("study:"+app.DefaultLedgerKey, "garbage")
	if n := len(ledger.LoadAll(ctx)); n != 0 {
		t.Fatalf("expected garbage to load as empty, got %d", n)
	}
}

func TestLedgerLoadsEmptyWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	ledger := app.NewLedger(NewKVStore(client, "study:", 0))
	mr.Close()

	if results := ledger.LoadAll(context.Background()); len(results) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(results))
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
