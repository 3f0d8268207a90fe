package backend

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestResolveUnknownTag(t *testing.T) {
	for _, mode := range []Mode{ModeResize, ModeAugmentation} {
		_, err := Resolve("unknownvalue", mode, testRNG())
		assert.Error(t, err, "unknown tags are configuration errors")
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("resize")
	require.NoError(t, err)
	assert.Equal(t, ModeResize, mode)

	mode, err = ParseMode("augmentation")
	require.NoError(t, err)
	assert.Equal(t, ModeAugmentation, mode)

	_, err = ParseMode("warp")
	assert.Error(t, err)
}

func TestResolveFamilies(t *testing.T) {
	tests := []struct {
		tag         string
		family      Family
		granularity Granularity
	}{
		{TagKorniaRS, FamilyNative, GranularitySample},
		{TagOpenCV, FamilyClassic, GranularitySample},
		{TagKorniaCPU, FamilyPipelineCPU, GranularityBatch},
		{TagKorniaGPU, FamilyPipelineGPU, GranularityBatch},
	}

	for _, tc := range tests {
		b, err := Resolve(tc.tag, ModeResize, testRNG())
		require.NoError(t, err, tc.tag)
		assert.Equal(t, tc.tag, b.Tag)
		assert.Equal(t, tc.family, b.Family, tc.tag)
		assert.Equal(t, tc.granularity, b.Granularity, tc.tag)
		assert.NotNil(t, b.Transform, tc.tag)
	}
}

func TestResolveResizeModeWiring(t *testing.T) {
	for _, tag := range []string{TagKorniaRS, TagOpenCV} {
		b, err := Resolve(tag, ModeResize, testRNG())
		require.NoError(t, err)
		assert.Nil(t, b.Augmentor, "%s: resize mode runs no augmentation", tag)
		assert.Nil(t, b.BatchOp, "%s: sample-granularity variants have no batch op", tag)
	}

	for _, tag := range []string{TagKorniaCPU, TagKorniaGPU} {
		b, err := Resolve(tag, ModeResize, testRNG())
		require.NoError(t, err)
		assert.Nil(t, b.Augmentor, "%s: resize mode runs no augmentation", tag)
		assert.NotNil(t, b.BatchOp, "%s: in-pipeline variants resize per batch", tag)
	}
}

func TestResolveAugmentationModeWiring(t *testing.T) {
	for _, tag := range []string{TagKorniaRS, TagOpenCV} {
		b, err := Resolve(tag, ModeAugmentation, testRNG())
		require.NoError(t, err)
		assert.NotNil(t, b.Augmentor, "%s: sample-granularity jitter", tag)
		assert.Nil(t, b.BatchOp, tag)
	}

	for _, tag := range []string{TagKorniaCPU, TagKorniaGPU} {
		b, err := Resolve(tag, ModeAugmentation, testRNG())
		require.NoError(t, err)
		assert.NotNil(t, b.Augmentor, "%s: batch-granularity jitter", tag)
		assert.NotNil(t, b.BatchOp, tag)
	}
}

func TestTags(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"kornia_cpu", "kornia_gpu", "kornia_rs", "opencv"},
		Tags())
}
