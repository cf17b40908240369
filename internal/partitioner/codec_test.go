package partitioner

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 39 个学生的成绩
var classScores = []float64{
	12.5, 14, 9, 17, 11, 15.5, 8, 13, 16, 10,
	18, 12, 7.5, 14.5, 11.5, 19, 13.5, 9.5, 15, 12,
	16.5, 10.5, 14, 8.5, 17.5, 13, 11, 15, 12.5, 9,
	16, 14, 10, 13.5, 18.5, 11, 12, 15.5, 13,
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestDiscreteCreateIsBalanced(t *testing.T) {
	codec := NewCodec(EncodingDiscrete, 39, 3)
	rng := newRand(1)

	for i := 0; i < 200; i++ {
		ch := codec.Create(rng)
		require.Equal(t, 39*3, ch.Len())
		assert.Equal(t, []int{13, 13, 13}, codec.Decode(ch).Sizes())
	}
}

func TestDiscreteCreateWithinBand(t *testing.T) {
	codec := NewCodec(EncodingDiscrete, 39, 4)
	rng := newRand(2)

	for i := 0; i < 200; i++ {
		sizes := codec.Decode(codec.Create(rng)).Sizes()
		require.Len(t, sizes, 4)

		total := 0
		for _, size := range sizes {
			assert.Contains(t, []int{9, 10}, size)
			total += size
		}
		assert.Equal(t, 39, total)
	}
}

func TestDecodeIsPureAndOrdered(t *testing.T) {
	for _, encoding := range []Encoding{EncodingDiscrete, EncodingContinuous} {
		codec := NewCodec(encoding, 39, 3)
		ch := codec.Create(newRand(3))

		first := codec.Decode(ch)
		second := codec.Decode(ch)
		assert.Equal(t, first, second, encoding)

		seen := 0
		for _, members := range first {
			assert.IsIncreasing(t, members)
			seen += len(members)
		}
		assert.Equal(t, 39, seen)
	}
}

func TestContinuousCreateIsNormalized(t *testing.T) {
	codec := NewCodec(EncodingContinuous, 39, 3)
	ch := codec.Create(newRand(4))

	for i := 0; i < 39; i++ {
		block := ch.Block(i)
		sum := 0.0
		for _, w := range block {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestContinuousDecodeTieBreaksToLowestIndex(t *testing.T) {
	ch, err := FromGenes(EncodingContinuous, 3, []float64{
		0.5, 0.5, 0,
		0.2, 0.4, 0.4,
		0.1, 0.2, 0.7,
	})
	require.NoError(t, err)

	partition := NewCodec(EncodingContinuous, 3, 3).Decode(ch)
	assert.Equal(t, Partition{{0}, {1}, {2}}, partition)
}

func TestFromGenesDegenerateBlocks(t *testing.T) {
	ch, err := FromGenes(EncodingDiscrete, 3, []float64{
		0, 1, 0, // 正常
		0, 0, 0, // 没有 1
		0, 1, 1, // 多个 1
		0.2, 0, 0.7, // 非法取值
	})
	require.NoError(t, err)

	partition := NewCodec(EncodingDiscrete, 4, 3).Decode(ch)
	assert.Equal(t, Partition{{1}, {0, 2}, {3}}, partition)

	// 规范化后再导出应当是严格的 one-hot
	assert.Equal(t, []float64{
		0, 1, 0,
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}, ch.Genes())
}

func TestFromGenesHealsContinuousBlocks(t *testing.T) {
	ch, err := FromGenes(EncodingContinuous, 2, []float64{-1, -2, 3, 1})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.5}, ch.Block(0))
	assert.Equal(t, []float64{0.75, 0.25}, ch.Block(1))
}

func TestFromGenesRejectsMalformedInput(t *testing.T) {
	_, err := FromGenes(EncodingDiscrete, 3, []float64{1, 0, 0, 1})
	assert.ErrorIs(t, err, ErrMalformedGenes)

	_, err = FromGenes(EncodingDiscrete, 1, []float64{1})
	assert.ErrorIs(t, err, ErrMalformedGenes)

	_, err = FromGenes("permutation", 2, []float64{1, 0})
	assert.ErrorIs(t, err, ErrMalformedGenes)
}

func TestGenesRoundTrip(t *testing.T) {
	for _, encoding := range []Encoding{EncodingDiscrete, EncodingContinuous} {
		codec := NewCodec(encoding, 39, 3)
		ch := codec.Create(newRand(5))

		restored, err := FromGenes(encoding, 3, ch.Genes())
		require.NoError(t, err)
		assert.Equal(t, codec.Decode(ch), codec.Decode(restored), encoding)
	}
}

func TestGroupLabel(t *testing.T) {
	assert.Equal(t, "A", GroupLabel(0))
	assert.Equal(t, "D", GroupLabel(3))
	assert.Equal(t, "G27", GroupLabel(26))
}
