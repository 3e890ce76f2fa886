package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountEmpty(t *testing.T) {
	assert.Equal(t, 0, Count(""))
}

func TestCountGrowsWithText(t *testing.T) {
	short := Count("Summarize the fund.")
	long := Count(strings.Repeat("Summarize the fund performance for limited partners. ", 20))

	assert.Positive(t, short)
	assert.Greater(t, long, short)
}

func TestCountStable(t *testing.T) {
	text := "Draft a client email about Q3 portfolio commentary."
	assert.Equal(t, Count(text), Count(text))
}
