package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/photohub/photohub-saas/platform/go/tenant"
)

func TestResolveObjectLocation(t *testing.T) {
	scope := tenant.For(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"))

	loc, err := ResolveObjectLocation(scope, "photohub-dev-media", "/studios/7/abc-front.jpg")
	require.NoError(t, err)
	require.Equal(t, "photohub-dev-media", loc.Bucket)
	require.Equal(t, "photographers/0f8fad5b/studios/7/abc-front.jpg", loc.FullPath)

	_, err = ResolveObjectLocation(scope, "", "file")
	require.Error(t, err)

	_, err = ResolveObjectLocation(scope, "bucket", " ")
	require.Error(t, err)

	_, err = ResolveObjectLocation(tenant.Scope{}, "bucket", "file")
	require.Error(t, err)
}

func TestStudioImageKey(t *testing.T) {
	key, err := StudioImageKey(42, "  Main Hall (Day).JPG ")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "studios/42/"))
	require.True(t, strings.HasSuffix(key, "-main-hall-day.jpg"), key)

	key, err = StudioImageKey(42, "???")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(key, "-image"), key)

	_, err = StudioImageKey(0, "a.png")
	require.Error(t, err)
}

func TestReferenceImageKey(t *testing.T) {
	key, err := ReferenceImageKey("Golden Hour.PNG")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "references/"), key)
	require.True(t, strings.HasSuffix(key, "-golden-hour.png"), key)
	require.Len(t, strings.TrimPrefix(key, "references/"), len("12345678-golden-hour.png"))

	other, err := ReferenceImageKey("Golden Hour.PNG")
	require.NoError(t, err)
	require.NotEqual(t, key, other)

	_, err = ReferenceImageKey("  ")
	require.Error(t, err)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"already-slug":        "already-slug",
		"  Deck Builders ":    "deck-builders",
		"loft__studio--north": "loft-studio-north",
		"***":                 "",
	}
	for in, want := range tests {
		require.Equal(t, want, Slugify(in), in)
	}
}
