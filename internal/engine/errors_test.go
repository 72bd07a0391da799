package engine

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cfrstat/internal/document"
	"github.com/roach88/cfrstat/internal/traverse"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestInputError_Format(t *testing.T) {
	err := newInputError(ErrCodeUnknownAgency, "ZZZ", "unknown agency short name")
	assert.Equal(t, "UNKNOWN_AGENCY: unknown agency short name (ZZZ)", err.Error())

	err = newInputError(ErrCodeInvalidRange, "", "end before start")
	assert.Equal(t, "INVALID_RANGE: end before start", err.Error())
}

func TestIsInputError_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", newInputError(ErrCodeUnknownMetric, "x", "unknown metric"))
	assert.True(t, IsInputError(err))
	assert.False(t, IsInputError(errors.New("disk full")))
	assert.False(t, IsInputError(nil))
}

func TestMalformed_Conversion(t *testing.T) {
	parseErr := &document.ParseError{Offset: 10, Err: errors.New("unexpected EOF")}
	code, ok := InputErrorCodeOf(malformed(parseErr))
	assert.True(t, ok)
	assert.Equal(t, ErrCodeMalformedDocument, code)
	assert.ErrorIs(t, malformed(parseErr), parseErr)

	structErr := &traverse.StructureError{DivType: "PART", Element: "DIV5", Reason: "missing N identifier"}
	code, ok = InputErrorCodeOf(malformed(structErr))
	assert.True(t, ok)
	assert.Equal(t, ErrCodeMalformedDocument, code)

	other := errors.New("disk full")
	assert.Same(t, other, malformed(other))
}
