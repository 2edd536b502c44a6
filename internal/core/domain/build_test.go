package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_SuccessRate(t *testing.T) {
	tests := []struct {
		name      string
		processed int
		failed    int
		want      int
		ok        bool
	}{
		{"nothing attempted", 0, 0, 0, false},
		{"all processed", 4, 0, 100, true},
		{"all failed", 0, 3, 0, true},
		{"two of three", 2, 1, 67, true},
		{"one of three", 1, 2, 33, true},
		{"half", 1, 1, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Build{Processed: tt.processed, Failed: tt.failed}
			rate, ok := b.SuccessRate()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, rate)
			assert.Equal(t, tt.processed+tt.failed, b.Attempted())
		})
	}
}

func TestKBStatus_IsValid(t *testing.T) {
	assert.True(t, KBStatusEmpty.IsValid())
	assert.True(t, KBStatusBuilding.IsValid())
	assert.True(t, KBStatusReady.IsValid())
	assert.False(t, KBStatus("failed").IsValid())
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1-0", ChunkID("doc-1", 0))
	assert.Equal(t, "abc-12", ChunkID("abc", 12))
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, 1, ClampTopK(0))
	assert.Equal(t, 1, ClampTopK(-5))
	assert.Equal(t, 6, ClampTopK(6))
	assert.Equal(t, 20, ClampTopK(20))
	assert.Equal(t, 20, ClampTopK(100))
}
