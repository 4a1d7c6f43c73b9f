package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePhenotypes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePhenotypes(&buf, []string{"sim1", "sim2"}, []float64{1, 0}))
	assert.Equal(t, "IID\tPHENOTYPE\nsim1\t2\nsim2\t1\n", buf.String())

	assert.Error(t, WritePhenotypes(&buf, []string{"sim1"}, nil))
}

func TestPowerWriter(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPowerWriter(&buf)
	require.NoError(t, pw.WriteHeader())
	require.NoError(t, pw.Write(PowerRow{
		Gene: "GENE", Structure: "1ABC", Replicates: 10, Significant: 8,
		Power: 0.8, MeanP: 0.031234567, MedianP: 0.002,
	}))
	require.NoError(t, pw.Flush())

	assert.Equal(t,
		"#gene\tstructure\treplicates\tsignificant\tdegenerate\tpower\tmean_p\tmedian_p\n"+
			"GENE\t1ABC\t10\t8\t0\t0.8\t0.0312346\t0.002\n",
		buf.String())
}
