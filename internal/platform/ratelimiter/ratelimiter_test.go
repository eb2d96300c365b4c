package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.Allow("identity-a", now) {
			t.Fatalf("request %d within burst was denied", i)
		}
	}
	if l.Allow("identity-a", now) {
		t.Fatal("request past the burst must be denied")
	}
	// Other keys have their own bucket.
	if !l.Allow("identity-b", now) {
		t.Fatal("separate key must not be affected")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()
	if !l.Allow("k", now) {
		t.Fatal("first request denied")
	}
	if l.Allow("k", now) {
		t.Fatal("burst of one must deny the second request")
	}
	if !l.Allow("k", now.Add(2*time.Second)) {
		t.Fatal("token must refill after the rate interval")
	}
}

func TestNilAndDisabledLimiterAllowEverything(t *testing.T) {
	var l *PerKey
	if !l.Allow("anyone", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if New(0, 10, time.Minute) != nil {
		t.Fatal("zero rps must disable limiting")
	}
	if New(1, 0, time.Minute) != nil {
		t.Fatal("zero burst must disable limiting")
	}
}
