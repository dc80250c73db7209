package gnuplot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		banner  string
		want    Version
		wantErr bool
	}{
		{
			name:   "modern release",
			banner: "gnuplot 5.4 patchlevel 8\n",
			want:   Version{Major: 5, Minor: 4, Patchlevel: "8"},
		},
		{
			name:   "six series",
			banner: "gnuplot 6.0 patchlevel 1\n",
			want:   Version{Major: 6, Minor: 0, Patchlevel: "1"},
		},
		{
			name:   "no patchlevel",
			banner: "gnuplot 5.2",
			want:   Version{Major: 5, Minor: 2},
		},
		{
			name:    "garbage",
			banner:  "command not found",
			wantErr: true,
		},
		{
			name:    "empty",
			banner:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.banner)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSpawn)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{Major: 5, Minor: 4}
	assert.True(t, v.AtLeast(4, 7))
	assert.True(t, v.AtLeast(5, 4))
	assert.True(t, v.AtLeast(5, 0))
	assert.False(t, v.AtLeast(5, 5))
	assert.False(t, v.AtLeast(6, 0))
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "5.4 patchlevel 8", Version{Major: 5, Minor: 4, Patchlevel: "8"}.String())
	assert.Equal(t, "5.2", Version{Major: 5, Minor: 2}.String())
}

func TestQueryVersionUnknownBinary(t *testing.T) {
	_, err := QueryVersion("definitely-not-a-real-binary-a8f3")
	require.ErrorIs(t, err, ErrSpawn)
}
