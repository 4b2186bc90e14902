package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsTenantData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/alerts"),
		attribute.String("tenant_name", "K. Akana"),
		attribute.String("db.statement", "SELECT 1"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsOnlyHead(t *testing.T) {
	err := fmt.Errorf("persist_failed: %w", errors.New(`duplicate key value "lease-7"`))
	assert.EqualError(t, SafeError(err), "persist_failed")
	assert.Nil(t, SafeError(nil))
}
