package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(NewRedisStore(rdb, "test"))
	p := ParsePolicy("3-H")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Check(ctx, "10.0.0.9", p)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed || d.Remaining != 3-i {
			t.Fatalf("request %d: allowed=%v remaining=%d", i, d.Allowed, d.Remaining)
		}
	}
	d, err := l.Check(ctx, "10.0.0.9", p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("4th request should be denied")
	}
	if ttl := mr.TTL("test:10.0.0.9:3-H"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	d, err = l.Check(ctx, "10.0.0.9", p)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Fatalf("after expiry: allowed=%v remaining=%d", d.Allowed, d.Remaining)
	}
}
