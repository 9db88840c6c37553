package textcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/dgallion1/docsense/internal/metrics"
)

type memStore struct {
	data   map[string][]byte
	ttl    time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttl = ttl
	return nil
}

func TestCache_RoundTrip(t *testing.T) {
	s := newMemStore()
	c := New(s, 30*time.Minute, nil)
	ctx := context.Background()

	hitsBefore := testutil.ToFloat64(metrics.TextCacheTotal.WithLabelValues("hit"))

	if _, ok := c.Get(ctx, "abc"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(ctx, "abc", Entry{Text: "--- Page 1 ---\nHello.", Format: "pdf"})
	if _, ok := s.data[KeyPrefix+"abc"]; !ok {
		t.Fatalf("expected key %q to be written", KeyPrefix+"abc")
	}
	if s.ttl != 30*time.Minute {
		t.Errorf("expected ttl 30m, got %v", s.ttl)
	}

	e, ok := c.Get(ctx, "abc")
	if !ok || e.Text != "--- Page 1 ---\nHello." || e.Format != "pdf" {
		t.Fatalf("unexpected entry %+v ok=%v", e, ok)
	}
	if got := testutil.ToFloat64(metrics.TextCacheTotal.WithLabelValues("hit")) - hitsBefore; got != 1 {
		t.Errorf("expected one recorded hit, got %f", got)
	}
}

func TestCache_Disabled(t *testing.T) {
	c := New(nil, 0, nil)
	if c.Enabled() {
		t.Fatal("expected cache without store to be disabled")
	}
	c.Put(context.Background(), "abc", Entry{Text: "x"})
	if _, ok := c.Get(context.Background(), "abc"); ok {
		t.Fatal("expected disabled cache to miss")
	}

	var nilCache *Cache
	if nilCache.Enabled() {
		t.Fatal("expected nil cache to be disabled")
	}
}

func TestCache_StoreErrorsAreMisses(t *testing.T) {
	s := newMemStore()
	s.getErr = errors.New("connection reset")
	s.setErr = errors.New("connection reset")
	c := New(s, time.Hour, nil)

	c.Put(context.Background(), "abc", Entry{Text: "x"})
	if _, ok := c.Get(context.Background(), "abc"); ok {
		t.Fatal("expected store error to surface as a miss")
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	s := newMemStore()
	s.data[KeyPrefix+"abc"] = []byte("{not json")
	c := New(s, time.Hour, nil)
	if _, ok := c.Get(context.Background(), "abc"); ok {
		t.Fatal("expected corrupt entry to miss")
	}
}

func TestRedisStore_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "docsense:text:abc")).
		Return(mock.Result(mock.RedisBlobString(`{"text":"hi"}`)))

	s := NewRedisStoreWithClient(client)
	data, err := s.Get(context.Background(), "docsense:text:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"text":"hi"}` {
		t.Errorf("unexpected data %s", data)
	}
}

func TestRedisStore_GetNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewRedisStoreWithClient(client)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "k" && cmd[2] == "v" &&
				strings.EqualFold(cmd[3], "EX") && cmd[4] == "3600"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewRedisStoreWithClient(client)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisStore_PingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewRedisStoreWithClient(client)
	if err := s.Ping(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestCache_OverRedisStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", KeyPrefix+"h1")).
		Return(mock.Result(mock.RedisNil()))

	c := New(NewRedisStoreWithClient(client), time.Hour, nil)
	if _, ok := c.Get(context.Background(), "h1"); ok {
		t.Fatal("expected miss")
	}
}
