package gcp

import "testing"

func TestGetPublicURL(t *testing.T) {
	cases := []struct {
		name string
		bs   *bucketService
		want string
	}{
		{
			name: "gcs default",
			bs:   &bucketService{bucketName: "carousels", storageMode: ObjectStorageModeGCS},
			want: "https://storage.googleapis.com/carousels/carousels/abc/page-1.png",
		},
		{
			name: "cdn",
			bs:   &bucketService{bucketName: "carousels", cdnDomain: "cdn.example.com"},
			want: "https://cdn.example.com/carousels/abc/page-1.png",
		},
		{
			name: "emulator",
			bs:   &bucketService{bucketName: "carousels", storageMode: ObjectStorageModeGCSEmulator, emulatorHost: "http://fake-gcs:4443"},
			want: "http://fake-gcs:4443/storage/v1/b/carousels/o/carousels%2Fabc%2Fpage-1.png?alt=media",
		},
	}
	for _, tc := range cases {
		if got := tc.bs.GetPublicURL("/carousels/abc/page-1.png"); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestResolveObjectStoragePublicBaseURL(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")
	base, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if base != "http://localhost:4443" || source != "object_storage_public_base_url" {
		t.Fatalf("want override got=%q,%q", base, source)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")
	if _, _, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS}); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestContentTypeForKey(t *testing.T) {
	if got := ContentTypeForKey("carousels/x/carousel-x-page-1.png"); got != "image/png" {
		t.Fatalf("png: got=%q", got)
	}
	if got := ContentTypeForKey("carousels/x/carousel-x.pdf?v=1"); got != "application/pdf" {
		t.Fatalf("pdf: got=%q", got)
	}
}
