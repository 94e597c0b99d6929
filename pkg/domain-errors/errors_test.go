package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lineageErr struct{}

func (lineageErr) Error() string   { return "bad parent" }
func (lineageErr) ErrorCode() Code { return CodeInvalidLineage }

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped coded error", func(t *testing.T) {
		err := fmt.Errorf("append: %w", New(CodeValidation, "bad payload"))
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches inner code beneath an outer wrap", func(t *testing.T) {
		err := Wrap(lineageErr{}, CodeInternal, "append failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeInvalidLineage))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("uncoded error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("wrap nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "x"))
	})
}
