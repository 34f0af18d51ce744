package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/vietddude/streamguard/internal/core/domain"
)

func TestPatternClassifier(t *testing.T) {
	c := NewPatternClassifier()

	tests := []struct {
		err    error
		expect domain.ErrorCategory
	}{
		{errors.New("429 Too Many Requests"), domain.CategoryRateLimit},
		{errors.New("room rate limit exceeded"), domain.CategoryRateLimit},
		{errors.New("http 401: token invalid"), domain.CategoryAuthentication},
		{errors.New("403 Forbidden"), domain.CategoryAuthentication},
		{errors.New("Unauthorized"), domain.CategoryAuthentication},
		{errors.New("request timeout after 10s"), domain.CategoryTimeout},
		{errors.New("i/o timed out"), domain.CategoryTimeout},
		{errors.New("dial tcp: connection refused"), domain.CategoryNetwork},
		{errors.New("lookup api.example: no such host"), domain.CategoryNetwork},
		{errors.New("ECONNRESET"), domain.CategoryNetwork},
		{errors.New("http 502 Bad Gateway"), domain.CategoryServer},
		{errors.New("503 Service Unavailable"), domain.CategoryServer},
		{errors.New("http 400: missing field"), domain.CategoryClient},
		{errors.New("404 page not found"), domain.CategoryClient},
		{errors.New("http 504 Gateway Timeout"), domain.CategoryServer},
		{errors.New("http 400 Bad Request: network_id is required"), domain.CategoryClient},
		{errors.New("something odd"), domain.CategoryUnknown},
		{errors.New("took 4000ms"), domain.CategoryUnknown},
		{nil, domain.CategoryUnknown},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.err); got != tt.expect {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestTypedClassifier(t *testing.T) {
	var tc TypedClassifier

	connErr := domain.NewConnectionError("ws-1", domain.CategoryServer, errors.New("boom"), nil)
	if got := tc.Classify(fmt.Errorf("wrapped: %w", connErr)); got != domain.CategoryServer {
		t.Errorf("expected server, got %v", got)
	}

	if got := tc.Classify(fmt.Errorf("call: %w", context.DeadlineExceeded)); got != domain.CategoryTimeout {
		t.Errorf("expected timeout, got %v", got)
	}

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	if got := tc.Classify(opErr); got != domain.CategoryNetwork {
		t.Errorf("expected network, got %v", got)
	}

	if got := tc.Classify(errors.New("plain")); got != domain.CategoryUnknown {
		t.Errorf("expected unknown, got %v", got)
	}
}

type codedErr int

func (e codedErr) Error() string   { return fmt.Sprintf("status %d: network timeout", int(e)) }
func (e codedErr) StatusCode() int { return int(e) }

func TestTypedClassifier_StatusCode(t *testing.T) {
	var tc TypedClassifier

	tests := []struct {
		code   int
		expect domain.ErrorCategory
	}{
		{400, domain.CategoryClient},
		{404, domain.CategoryClient},
		{401, domain.CategoryAuthentication},
		{403, domain.CategoryAuthentication},
		{408, domain.CategoryTimeout},
		{429, domain.CategoryRateLimit},
		{500, domain.CategoryServer},
		{504, domain.CategoryServer},
		{302, domain.CategoryUnknown},
	}

	for _, tt := range tests {
		if got := tc.Classify(fmt.Errorf("call: %w", codedErr(tt.code))); got != tt.expect {
			t.Errorf("Classify(%d) = %v, want %v", tt.code, got, tt.expect)
		}
	}
}

func TestGRPCClassifier(t *testing.T) {
	var gc GRPCClassifier

	tests := []struct {
		code   codes.Code
		expect domain.ErrorCategory
	}{
		{codes.Unavailable, domain.CategoryNetwork},
		{codes.DeadlineExceeded, domain.CategoryTimeout},
		{codes.ResourceExhausted, domain.CategoryRateLimit},
		{codes.Unauthenticated, domain.CategoryAuthentication},
		{codes.PermissionDenied, domain.CategoryAuthentication},
		{codes.InvalidArgument, domain.CategoryClient},
		{codes.Internal, domain.CategoryServer},
		{codes.Unknown, domain.CategoryUnknown},
	}

	for _, tt := range tests {
		err := status.Error(tt.code, "x")
		if got := gc.Classify(err); got != tt.expect {
			t.Errorf("code %v: got %v, want %v", tt.code, got, tt.expect)
		}
	}

	if got := gc.Classify(errors.New("not grpc")); got != domain.CategoryUnknown {
		t.Errorf("expected unknown for non-status error, got %v", got)
	}
}

func TestDefault_PrefersTypedOverPattern(t *testing.T) {
	// The message says "timeout" but the typed category is authoritative.
	err := domain.NewConnectionError("http-1", domain.CategoryClient, errors.New("timeout field invalid"), nil)
	if got := Default().Classify(err); got != domain.CategoryClient {
		t.Errorf("expected client, got %v", got)
	}

	if got := Default().Classify(errors.New("connection refused")); got != domain.CategoryNetwork {
		t.Errorf("expected network fallback to patterns, got %v", got)
	}
}

func TestRetryAfter(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "slow down").WithDetails(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(3 * time.Second),
	})
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}

	d, ok := RetryAfter(st.Err())
	if !ok || d != 3*time.Second {
		t.Errorf("expected 3s cool-down, got %v (ok=%v)", d, ok)
	}

	if _, ok := RetryAfter(errors.New("429")); ok {
		t.Error("plain errors carry no cool-down")
	}
}
