package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := SchemaError(fmt.Errorf("missing column %q", "date"))
	wrapped := Wrap(base, "load failed")

	assert.Equal(t, CodeSchemaError, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "load failed")
	assert.Contains(t, wrapped.Error(), "date")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrapf(stderrors.New("disk on fire"), "reading %s", "orders.csv")

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Equal(t, "reading orders.csv: disk on fire", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, WithCode(CodeBusy, nil))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("upload: %w", InvalidInput("bad extension"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestCauseIsReachable(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := Wrap(SchemaError(sentinel), "normalize")
	assert.True(t, stderrors.Is(err, sentinel))
}
