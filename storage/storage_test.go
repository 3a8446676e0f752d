package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	a := NewObjectKey("tournaments/banners/", ".png")
	b := NewObjectKey("tournaments/banners", "png")

	assert.True(t, strings.HasPrefix(a, "tournaments/banners/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.True(t, strings.HasSuffix(b, ".png"))
	assert.NotEqual(t, a, b)
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(a, "tournaments/banners/"), ".png"), 36)
}

func TestExtensionFromContentType(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":               ".jpg",
		"image/png":                ".png",
		"image/webp":               ".webp",
		"IMAGE/GIF":                ".gif",
		"image/png; charset=utf-8": ".png",
	}
	for ct, want := range tests {
		got, err := ExtensionFromContentType(ct)
		require.NoError(t, err, ct)
		assert.Equal(t, want, got)
	}

	_, err := ExtensionFromContentType("application/pdf")
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/tournaments/banners/x.png", publicURL("https://cdn.example.com", "tournaments/banners/x.png"))
	assert.Equal(t, "https://cdn.example.com/media/x.png", publicURL("https://cdn.example.com/media/", "/x.png"))
	assert.Equal(t, "", publicURL("", "x.png"))
	assert.Equal(t, "", publicURL("https://cdn.example.com", ""))
}

func TestR2ConfigValidation(t *testing.T) {
	assert.True(t, CloudflareR2UploaderConfig{}.Empty())

	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "acc"})
	assert.ErrorIs(t, err, ErrInvalidR2Config)
}

func TestMemoryUploader(t *testing.T) {
	u := NewMemoryUploader("https://cdn.example.com")
	res, err := u.Upload(context.Background(), "a/b.png", "image/png", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a/b.png", res.Location)

	got, ok := u.Object("a/b.png")
	require.True(t, ok)
	assert.Equal(t, "data", string(got))

	require.NoError(t, u.Delete(context.Background(), "a/b.png"))
	_, ok = u.Object("a/b.png")
	assert.False(t, ok)
}
