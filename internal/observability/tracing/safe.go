package tracing

import (
	"errors"

	"github.com/smallbiznis/codemart/internal/errs"
	"go.opentelemetry.io/otel/attribute"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"user_id":  {},
	"buyer_id": {},
	"remark":   {},
}

// SafeAttributes drops attributes that would leak caller identity into traces.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its kind so storage messages never reach the trace backend.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errs.KindOf(err))
}
