package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// FencedRecord wraps a JSON document in prose and a ```json fence, the way
// research backends usually answer.
func FencedRecord(jsonDoc string) string {
	return "Segue o resultado da pesquisa de compliance solicitada.\n\n```json\n" + jsonDoc + "\n```\n"
}

// RecordJSON is a minimal compliance document for the given product.
func RecordJSON(product, ncm string, score int, status string) string {
	return fmt.Sprintf(`{"product_name": %q, "ncm_code": %q, "risk_score": %d, "risk_level": "LOW", "status": %q, "certificates_required": [], "eu_regulations": [], "brazilian_requirements": [], "alerts": []}`,
		product, ncm, score, status)
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertErrorAs fails the test unless err matches target's type.
func AssertErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if err == nil {
		t.Fatalf("expected %T, got nil", target)
	}
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %T: %v", target, err, err)
	}
	return target
}

// WithTimeout runs fn with a timeout context and fails if it does not return
// in time.
func WithTimeout(t *testing.T, timeout time.Duration, fn func(ctx context.Context)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		fn(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout + time.Second):
		t.Fatalf("test timeout after %s", timeout)
	}
}
