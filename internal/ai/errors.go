package ai

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// FailureKind classifies why a gateway call failed. Classification happens
// exactly once, at the upstream call boundary; the retry loop and the
// user-facing message mapping both consume the kind — no layer above this
// package inspects error text.
type FailureKind string

const (
	// KindMissingCredential: no usable API key at call time. Never sent
	// to the network, never retried.
	KindMissingCredential FailureKind = "missing_credential"

	// KindBlocked: the model returned no text (safety filter or policy
	// refusal). Not retried — the same prompt will block again.
	KindBlocked FailureKind = "blocked"

	// KindMalformed: the response text failed to parse or violated the
	// declared schema constraints. Not retried.
	KindMalformed FailureKind = "malformed"

	// KindOverloaded: transient upstream overload (HTTP 503 /
	// UNAVAILABLE / "overloaded" signatures). Retried with backoff.
	KindOverloaded FailureKind = "overloaded"

	// KindQuota: quota exhaustion (HTTP 429 / RESOURCE_EXHAUSTED).
	// Retried with backoff; distinguished from overload for messaging.
	KindQuota FailureKind = "quota"

	// KindUnknown: anything else (network failure, auth rejection, …).
	// Not retried.
	KindUnknown FailureKind = "unknown"
)

// Retryable reports whether the retry loop should attempt the call again.
func (k FailureKind) Retryable() bool {
	return k == KindOverloaded || k == KindQuota
}

// UserMessage maps the kind to the message shown to the end user.
func (k FailureKind) UserMessage() string {
	switch k {
	case KindMissingCredential:
		return "API 키가 설정되지 않았습니다. 설정에서 키를 등록해 주세요."
	case KindBlocked:
		return "모델이 응답을 거부했습니다. 주제를 바꿔 다시 시도해 주세요."
	case KindOverloaded:
		return "모델이 일시적으로 과부하 상태입니다. 잠시 후 다시 시도해 주세요."
	case KindQuota:
		return "사용량 한도를 초과했습니다. 1분 후 다시 시도하거나 유료 API 키를 등록해 주세요."
	case KindMalformed:
		return "모델 응답을 해석하지 못했습니다. 다시 시도해 주세요."
	default:
		return "요청 처리 중 오류가 발생했습니다. 다시 시도해 주세요."
	}
}

// Error is the single error type that crosses out of this package. The
// wrapped cause is preserved for logs; callers branch on Kind only.
type Error struct {
	Kind FailureKind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("ai: %s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("ai: %s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind FailureKind, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, err: cause}
}

// KindOf extracts the FailureKind from an error chain. Non-gateway errors
// report KindUnknown.
func KindOf(err error) FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classifyUpstream turns a raw genai transport error into a typed Error.
// Status/code take precedence; the substring checks catch providers that
// put the signature only in the message body.
func classifyUpstream(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
			return newError(KindQuota, "quota exhausted", err)
		case apiErr.Code == 503 || apiErr.Status == "UNAVAILABLE":
			return newError(KindOverloaded, "model overloaded", err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "429"):
		return newError(KindQuota, "quota exhausted", err)
	case strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable") || strings.Contains(msg, "503"):
		return newError(KindOverloaded, "model overloaded", err)
	}

	return newError(KindUnknown, "upstream call failed", err)
}
