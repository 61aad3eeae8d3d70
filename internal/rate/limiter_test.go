package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*Limiter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, "cg"), func() { mr.Close() }
}

func TestCheckAllowsWithinBudget(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	class := Class{Name: "login", MaxAttempts: 5, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := l.Check(ctx, "10.0.0.1", class)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if d.Remaining != 5-i-1 {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 5-i-1, d.Remaining)
		}
	}

	d, err := l.Check(ctx, "10.0.0.1", class)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if d.Allowed {
		t.Fatal("sixth attempt within the window must be denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry-after: %v", d.RetryAfter)
	}
}

func TestClassesHaveIndependentBudgets(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	ctx := context.Background()
	login := Class{Name: "login", MaxAttempts: 1, Window: time.Minute}
	register := Class{Name: "register", MaxAttempts: 1, Window: time.Hour}

	if d, err := l.Check(ctx, "10.0.0.1", login); err != nil || !d.Allowed {
		t.Fatalf("login attempt should be allowed, d=%+v err=%v", d, err)
	}
	if d, err := l.Check(ctx, "10.0.0.1", register); err != nil || !d.Allowed {
		t.Fatalf("registration budget must be independent, d=%+v err=%v", d, err)
	}
	if d, err := l.Check(ctx, "10.0.0.2", login); err != nil || !d.Allowed {
		t.Fatalf("different client key must have its own budget, d=%+v err=%v", d, err)
	}
}

func TestWindowIsRolling(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	ctx := context.Background()
	class := Class{Name: "login", MaxAttempts: 1, Window: 150 * time.Millisecond}

	if d, err := l.Check(ctx, "k", class); err != nil || !d.Allowed {
		t.Fatalf("first attempt should be allowed, d=%+v err=%v", d, err)
	}
	if d, err := l.Check(ctx, "k", class); err != nil || d.Allowed {
		t.Fatalf("second attempt inside the window must be denied, d=%+v err=%v", d, err)
	}

	time.Sleep(200 * time.Millisecond)

	if d, err := l.Check(ctx, "k", class); err != nil || !d.Allowed {
		t.Fatalf("attempt after the window elapsed must be allowed, d=%+v err=%v", d, err)
	}
}

func TestDeniedAttemptsDoNotExtendTheWindow(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	ctx := context.Background()
	class := Class{Name: "login", MaxAttempts: 1, Window: 200 * time.Millisecond}

	if _, err := l.Check(ctx, "k", class); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	first, err := l.Check(ctx, "k", class)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	second, err := l.Check(ctx, "k", class)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if second.Allowed {
		t.Fatal("still inside window, must be denied")
	}
	if second.RetryAfter > first.RetryAfter {
		t.Fatalf("denied attempts must not push the retry horizon out: %v -> %v",
			first.RetryAfter, second.RetryAfter)
	}
}

func TestResetClearsTheBudget(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	ctx := context.Background()
	class := Class{Name: "login", MaxAttempts: 1, Window: time.Minute}

	if _, err := l.Check(ctx, "k", class); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if err := l.Reset(ctx, "k", class); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	d, err := l.Check(ctx, "k", class)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !d.Allowed {
		t.Fatal("attempt after reset must be allowed")
	}
}

func TestAttempts(t *testing.T) {
	l, done := newTestLimiter(t)
	defer done()

	ctx := context.Background()
	class := Class{Name: "general", MaxAttempts: 100, Window: time.Minute}

	if n, err := l.Attempts(ctx, "k", class); err != nil || n != 0 {
		t.Fatalf("expected zero attempts for missing key, n=%d err=%v", n, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "k", class); err != nil {
			t.Fatalf("Check failed: %v", err)
		}
	}

	if n, err := l.Attempts(ctx, "k", class); err != nil || n != 3 {
		t.Fatalf("expected three attempts, n=%d err=%v", n, err)
	}
}
