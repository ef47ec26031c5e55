package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeStorageServer struct {
	bucketExists bool
	created      bool
	uploads      map[string][]byte
	upsert       string
	auth         string
}

func (f *fakeStorageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.auth = r.Header.Get("Authorization")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/bucket/property-images":
		if !f.bucketExists {
			http.Error(w, `{"error":"Bucket not found"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":"property-images"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/bucket":
		f.created = true
		f.bucketExists = true
		w.Write([]byte(`{"name":"property-images"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/property-images/properties/42.jpg":
		body, _ := io.ReadAll(r.Body)
		f.uploads[r.URL.Path] = body
		f.upsert = r.Header.Get("x-upsert")
		w.Write([]byte(`{"Key":"property-images/properties/42.jpg"}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusTeapot)
	}
}

func TestBlobEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeStorageServer{uploads: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	b := NewHTTPBlobStore(srv.URL+"/", "secret", "property-images")
	if err := b.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if !fake.created {
		t.Error("bucket should have been created")
	}
	if fake.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", fake.auth)
	}

	fake.created = false
	if err := b.EnsureBucket(context.Background()); err != nil || fake.created {
		t.Errorf("existing bucket: err=%v created=%v", err, fake.created)
	}
}

func TestBlobUploadAndPublicURL(t *testing.T) {
	fake := &fakeStorageServer{bucketExists: true, uploads: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	b := NewHTTPBlobStore(srv.URL, "secret", "property-images")
	if err := b.Upload(context.Background(), "properties/42.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if string(fake.uploads["/storage/v1/object/property-images/properties/42.jpg"]) != "jpeg" {
		t.Errorf("uploads = %v", fake.uploads)
	}
	if fake.upsert != "true" {
		t.Errorf("x-upsert = %q", fake.upsert)
	}

	want := srv.URL + "/storage/v1/object/public/property-images/properties/42.jpg"
	if got := b.PublicURL("properties/42.jpg"); got != want {
		t.Errorf("PublicURL = %q; want %q", got, want)
	}
}

func TestBlobUploadError(t *testing.T) {
	fake := &fakeStorageServer{uploads: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	b := NewHTTPBlobStore(srv.URL, "secret", "property-images")
	if err := b.Upload(context.Background(), "properties/7.jpg", []byte("x"), "image/jpeg"); err == nil {
		t.Error("expected an error for a non-2xx response")
	}
}
