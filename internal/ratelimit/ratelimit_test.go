package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaConsumesBudget(t *testing.T) {
	t.Parallel()

	q := NewQuota(time.Hour, 2)
	if !q.Allow() || !q.Allow() {
		t.Fatalf("first two calls should be allowed")
	}
	if q.Allow() {
		t.Fatalf("third call should exceed the budget")
	}
}

func TestNilQuotaAlwaysAllows(t *testing.T) {
	t.Parallel()

	q := NewQuota(time.Hour, 0)
	if q != nil {
		t.Fatalf("disabled quota should be nil")
	}
	for i := 0; i < 10; i++ {
		if !q.Allow() {
			t.Fatalf("nil quota must allow")
		}
	}
}
