package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/aad/internal/autodiff"
)

func TestCSE_OffRecordsDuplicates(t *testing.T) {
	tape := autodiff.NewTape()
	x, y := tape.Var(2), tape.Var(3)

	p := x.Mul(y)
	q := x.Mul(y)

	assert.NotEqual(t, p.Index(), q.Index())
	assert.Equal(t, 4, tape.Len())
	assert.Zero(t, tape.Stats().CacheHits)
}

func TestCSE_StructuralReusesNode(t *testing.T) {
	tape := autodiff.NewTape(autodiff.WithCSE(autodiff.CSEStructural))
	x, y := tape.Var(2), tape.Var(3)

	p := x.Mul(y)
	q := x.Mul(y)
	require.Equal(t, p.Index(), q.Index())
	assert.Equal(t, 3, tape.Len())

	// z = (xy)² through the shared node, dz/dx = 2xy², dz/dy = 2x²y
	z := p.Mul(q)
	require.NoError(t, z.PropagateToStart())
	assert.Equal(t, 36.0, z.Value())
	assert.Equal(t, 36.0, x.Adjoint())
	assert.Equal(t, 24.0, y.Adjoint())

	stats := tape.Stats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 2, stats.CacheEntries)
}

func TestCSE_StructuralDistinguishesOperands(t *testing.T) {
	tape := autodiff.NewTape(autodiff.WithCSE(autodiff.CSEStructural))
	a, b := tape.Var(2), tape.Var(2)

	la, lb := a.Log(), b.Log()
	assert.NotEqual(t, la.Index(), lb.Index())

	// Same operand, different constant.
	assert.NotEqual(t, a.MulScalar(2).Index(), a.MulScalar(3).Index())

	y := la.Add(lb)
	require.NoError(t, y.PropagateToStart())
	assert.Equal(t, 0.5, a.Adjoint())
	assert.Equal(t, 0.5, b.Adjoint())
}

// TestCSE_ValueModeIsLossy documents that value mode merges subexpressions of
// different inputs sharing a value.
func TestCSE_ValueModeIsLossy(t *testing.T) {
	tape := autodiff.NewTape(autodiff.WithCSE(autodiff.CSEValue))
	a, b := tape.Var(2), tape.Var(2)

	la, lb := a.Log(), b.Log()
	require.Equal(t, la.Index(), lb.Index())

	y := la.Add(lb)
	require.NoError(t, y.PropagateToStart())
	assert.Equal(t, 1.0, a.Adjoint())
	assert.Equal(t, 0.0, b.Adjoint())
}

func TestCSE_RewindToMarkTruncatesCache(t *testing.T) {
	tape := autodiff.NewTape(autodiff.WithCSE(autodiff.CSEStructural))
	x := tape.Var(3)
	pre := x.Exp()
	tape.SetMark()

	post := x.Sin()
	postIndex := post.Index()
	assert.Equal(t, 2, tape.Stats().CacheEntries)
	tape.RewindToMark()
	assert.Equal(t, 1, tape.Stats().CacheEntries)

	// The pre-mark entry still hits, the released one records afresh.
	assert.Equal(t, pre.Index(), x.Exp().Index())
	again := x.Sin()
	assert.Equal(t, postIndex, again.Index())
	assert.True(t, again.Valid())
	assert.False(t, post.Valid())
	assert.Equal(t, 3, tape.Len())
}

func TestCSE_RewindClearsCache(t *testing.T) {
	tape := autodiff.NewTape(autodiff.WithCSE(autodiff.CSEStructural))
	x := tape.Var(1)
	x.Exp()
	x.Exp()
	require.Equal(t, 1, tape.Stats().CacheHits)

	tape.Rewind()
	stats := tape.Stats()
	assert.Zero(t, stats.CacheEntries)
	assert.Zero(t, stats.CacheHits)
	assert.Zero(t, stats.Nodes)
}

func TestParseCSEMode(t *testing.T) {
	tests := []struct {
		in      string
		want    autodiff.CSEMode
		wantErr bool
	}{
		{"", autodiff.CSEOff, false},
		{"off", autodiff.CSEOff, false},
		{"structural", autodiff.CSEStructural, false},
		{"value", autodiff.CSEValue, false},
		{"bits", autodiff.CSEOff, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := autodiff.ParseCSEMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}
