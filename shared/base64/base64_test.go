package base64_test

import (
	"testing"

	"innkeeper/shared/base64"

	"github.com/stretchr/testify/assert"
)

const pixelPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func TestGetContentType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "png data uri",
			input:    pixelPNG,
			expected: "image/png",
		},
		{
			name:     "text plain",
			input:    "data:text/plain;base64,SGVsbG8gV29ybGQ=",
			expected: "text/plain",
		},
		{
			name:     "plain url",
			input:    "https://cdn.example.com/rooms/deluxe.jpg",
			expected: "",
		},
		{
			name:     "missing data prefix",
			input:    "image/png;base64,AAAA",
			expected: "",
		},
		{
			name:     "missing base64 marker",
			input:    "data:image/png,AAAA",
			expected: "",
		},
		{
			name:     "empty content type",
			input:    "data:;base64,",
			expected: "",
		},
		{
			name:     "content type with parameters",
			input:    "data:image/svg+xml;charset=utf-8;base64,PHN2Zz48L3N2Zz4=",
			expected: "image/svg+xml;charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base64.GetContentType(tt.input))
			assert.Equal(t, tt.expected != "", base64.IsDataURI(tt.input))
		})
	}
}

func TestDecode(t *testing.T) {
	contentType, data, err := base64.Decode(pixelPNG)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])

	_, _, err = base64.Decode("rooms/deluxe.jpg")
	assert.ErrorIs(t, err, base64.ErrNotDataURI)

	_, _, err = base64.Decode("data:image/png;base64,%%%")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", base64.Extension("image/png"))
	assert.Equal(t, "jpg", base64.Extension("image/jpeg"))
	assert.Equal(t, "webp", base64.Extension("image/webp"))
	assert.Equal(t, "bin", base64.Extension("application/octet-stream"))
}
