package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPyMOLWriter(t *testing.T) {
	var buf bytes.Buffer
	err := NewPyMOLWriter(&buf).Write("1ABC", []Residue{
		{Chain: "A", Position: "10", Effect: 0.02},
		{Chain: "B", Position: "5", Effect: 0},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"fetch 1ABC",
		"alter 1ABC, b=0.0",
		"show_as cartoon, 1ABC",
		"color white, 1ABC",
		"alter resi 10 and chain A, b=0.02",
		"alter resi 5 and chain B, b=0",
		"spectrum b, white_red, 1ABC, minimum=0, maximum=0.02",
		"zoom",
	}, lines)
}

func TestPyMOLWriterNoResidues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPyMOLWriter(&buf).Write("2XYZ", nil))
	assert.Contains(t, buf.String(), "maximum=0\n")
}
