package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FailureClass partitions provider errors for the retry policy. Keeping the
// classification behind this enum means the failover logic never inspects
// error text directly.
type FailureClass int

const (
	// FailureTransient covers rate limits, quota exhaustion, timeouts and
	// 5xx responses. Eligible for one fallback attempt.
	FailureTransient FailureClass = iota
	// FailureMalformed covers replies that could not be decoded into the
	// analysis schema. Never retried: treated as a provider/schema bug.
	FailureMalformed
	// FailureFatal covers everything else (auth errors, bad requests).
	FailureFatal
)

// ErrMalformedReply is wrapped by the reply decoder when a provider response
// cannot be parsed or is missing mandatory fields.
var ErrMalformedReply = errors.New("malformed provider reply")

// transientSignatures are substrings that mark a provider error as
// rate-limit-like. Providers report these conditions in wildly different
// shapes, so string matching is the only portable detection.
var transientSignatures = []string{
	"rate_limit",
	"rate limit",
	"too many requests",
	"tokens",
	"tpm",
	"quota",
	"overloaded",
	"status 413",
	"status 429",
	"status 500",
	"status 502",
	"status 503",
	"status 529",
}

// Classify maps a provider error onto its failure class. A timed-out call is
// treated identically to a transport failure.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureFatal
	}
	if errors.Is(err, ErrMalformedReply) {
		return FailureMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return FailureTransient
		}
	}
	return FailureFatal
}
