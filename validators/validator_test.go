package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Username string `validate:"required,alphanum,min=3"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(sample{Username: "alice"}))
	assert.Error(t, v.Validate(sample{Username: "a!"}))
	assert.Error(t, v.Validate(sample{}))
}
