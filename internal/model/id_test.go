package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlots/foreman/internal/model"
)

func TestNewRunID(t *testing.T) {
	id := model.NewRunID()
	assert.Len(t, id, 26)

	seen := make(map[string]bool)
	for range 100 {
		rid := model.NewRunID()
		assert.False(t, seen[rid], "duplicate run id %s", rid)
		seen[rid] = true
	}
}
