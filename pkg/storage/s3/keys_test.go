package s3

import "testing"

func TestObjectKey(t *testing.T) {
	key := ObjectKey("req-1", "seller-1", "asset-1")
	if key != "entries/req-1/seller-1/asset-1" {
		t.Fatalf("unexpected key: %s", key)
	}
}

func TestThumbnailKey(t *testing.T) {
	if got := ThumbnailKey("entries/a/b/c"); got != "entries/a/b/c_thumbnail" {
		t.Fatalf("unexpected thumbnail key: %s", got)
	}
}

func TestFilenameFromKey(t *testing.T) {
	cases := []struct {
		name string
		key  string
		want string
	}{
		{"nested key", "entries/a/b/photo-1", "photo-1"},
		{"no separator", "photo-1", "photo-1"},
		{"trailing slash", "entries/a/", "entries/a/"},
		{"escaped name", "entries/a/my%20photo", "my photo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FilenameFromKey(tc.key); got != tc.want {
				t.Fatalf("FilenameFromKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}
