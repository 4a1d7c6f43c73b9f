package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse("12:56477541:C:T")
	require.NoError(t, err)
	assert.Equal(t, "12", v.Chrom)
	assert.Equal(t, int64(56477541), v.Pos)
	assert.Equal(t, "C", v.Ref)
	assert.Equal(t, "T", v.Alt)
	assert.True(t, v.IsSNV())
	assert.Equal(t, ID("12:56477541:C:T"), v.ID())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		id   ID
	}{
		{"too few fields", "12:56477541:C"},
		{"too many fields", "12:1:C:T:G"},
		{"non-numeric position", "12:abc:C:T"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.id)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeChrom(t *testing.T) {
	assert.Equal(t, "12", NormalizeChrom("chr12"))
	assert.Equal(t, "12", NormalizeChrom("12"))
	assert.Equal(t, "X", NormalizeChrom("chrX"))
	assert.Equal(t, "chr", NormalizeChrom("chr"))
}

func TestFromPlinkColumn(t *testing.T) {
	tests := []struct {
		col  string
		want ID
	}{
		{"12:56477541:C:T_T", "12:56477541:C:T"},
		{"1:100:A:AT_AT", "1:100:A:AT"},
		{"X:5:G:A_A", "X:5:G:A"},
	}

	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			got, err := FromPlinkColumn(tt.col)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromPlinkColumn("12:56477541:C:T")
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	s := NewSet([]ID{"1:1:A:T", "2:2:C:G"})
	assert.True(t, s.Contains("1:1:A:T"))
	assert.False(t, s.Contains("3:3:A:T"))
	assert.Len(t, s, 2)
}
