package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(true)
	etag := c.Set("k", []byte(`{"a":1}`), time.Minute)

	data, gotTag, ok := c.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `{"a":1}` || gotTag != etag {
		t.Errorf("got (%s, %s)", data, gotTag)
	}
}

func TestExpiry(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("v"), -time.Second)
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("expired entry must miss")
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Minute)
	if etag == "" {
		t.Error("disabled cache still computes ETags")
	}
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("disabled cache must always miss")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("v"), time.Minute)
	c.Invalidate("k")
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("invalidated entry must miss")
	}
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("v"))
	if !CheckETagMatch(etag, etag) {
		t.Error("identical etags must match")
	}
	if !CheckETagMatch("*", etag) {
		t.Error("wildcard must match")
	}
	if CheckETagMatch("", etag) {
		t.Error("empty If-None-Match must not match")
	}
}
