package errreport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledWithoutToken(t *testing.T) {
	Configure("", "test", "")
	assert.False(t, Enabled())

	Report(errors.New("boom"), map[string]interface{}{"path": "/x"})
	Flush()
}
