package classify

import (
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/streamguard/internal/core/domain"
)

// GRPCClassifier classifies errors carrying a gRPC status.
type GRPCClassifier struct{}

// Classify implements Classifier.
func (GRPCClassifier) Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknown
	}
	st, ok := status.FromError(err)
	if !ok {
		return domain.CategoryUnknown
	}

	switch st.Code() {
	case codes.Unavailable, codes.Aborted:
		return domain.CategoryNetwork
	case codes.DeadlineExceeded:
		return domain.CategoryTimeout
	case codes.ResourceExhausted:
		return domain.CategoryRateLimit
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.CategoryAuthentication
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.FailedPrecondition, codes.OutOfRange, codes.Unimplemented:
		return domain.CategoryClient
	case codes.Internal, codes.DataLoss:
		return domain.CategoryServer
	default:
		return domain.CategoryUnknown
	}
}

// RetryAfter extracts a server-specified cool-down from a gRPC status
// carrying errdetails.RetryInfo.
func RetryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	st, ok := status.FromError(err)
	if !ok {
		return 0, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
			return info.GetRetryDelay().AsDuration(), true
		}
	}
	return 0, false
}
