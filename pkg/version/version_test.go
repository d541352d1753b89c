package version_test

import (
	"testing"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, ok := range []string{"0.0.1", "3.7.8", "1.0.0-rc.1", "10.20.30+build.5"} {
		_, err := version.Parse(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "v1.0.0", "1.0", "one", "1.0.0.0"} {
		_, err := version.Parse(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidVersion, bad)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.0.1", "0.0.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.10.0", -1},
		{"1.0.0-rc.1", "1.0.0", -1},
		{"v2.0", "2.0.0", 0},
		{"", "0.0.0", 0},
		{"garbage", "0.0.1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, version.Compare(tt.a, tt.b))
		})
	}
}

func TestAtLeast(t *testing.T) {
	assert.True(t, version.AtLeast("0.0.1", "0.0.1"))
	assert.True(t, version.AtLeast("0.1.0", "0.0.9"))
	assert.False(t, version.AtLeast(version.None, "0.0.1"))
}

func TestNext(t *testing.T) {
	tests := []struct {
		latest, keyword, want string
	}{
		{"0.0.1", version.KeywordPatch, "0.0.2"},
		{"0.0.1", version.KeywordMinor, "0.1.0"},
		{"0.0.1", version.KeywordMajor, "1.0.0"},
		{"1.4.2", version.KeywordMinor, "1.5.0"},
		{version.None, version.KeywordPatch, "0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.keyword+"_from_"+tt.latest, func(t *testing.T) {
			got, err := version.Next(tt.latest, tt.keyword)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := version.Next("1.0.0", "new build")
	assert.Error(t, err)
}
