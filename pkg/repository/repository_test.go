package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirehome/core/pkg/types"
)

func TestGetFileURI(t *testing.T) {
	uri, err := GetFileURI("climate@1.0.2", "script.py")
	require.NoError(t, err)
	assert.Equal(t, "/repository/climate/1.0.2/script.py", uri)
}

func TestGetFileURI_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		uid      string
		filename string
	}{
		{"missing version separator", "climate", "script.py"},
		{"empty id", "@1.0.2", "script.py"},
		{"empty version", "climate@", "script.py"},
		{"empty uid", "", "script.py"},
		{"empty filename", "climate@1.0.2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetFileURI(tt.uid, tt.filename)
			assert.ErrorIs(t, err, types.ErrInvalidArgument)
		})
	}
}
