package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/Soft-Craft-Bol/tinkus-backend/internal/config"
)

type fakeS3 struct {
	s3iface.S3API
	puts    map[string][]byte
	deleted []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.StringValue(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore() (*S3Store, *fakeS3) {
	fake := &fakeS3{puts: map[string][]byte{}}
	return NewS3WithClient(fake, config.S3Config{Bucket: "tinkus", Region: "us-east-1", Folder: "users"}), fake
}

func TestS3Store_UploadAndDelete(t *testing.T) {
	store, fake := newTestStore()

	path := filepath.Join(t.TempDir(), "foto.PNG")
	if err := os.WriteFile(path, []byte("img"), 0o600); err != nil {
		t.Fatal(err)
	}

	url, err := store.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	prefix := "https://tinkus.s3.us-east-1.amazonaws.com/users/"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}
	key := strings.TrimPrefix(url, "https://tinkus.s3.us-east-1.amazonaws.com/")
	if string(fake.puts[key]) != "img" {
		t.Fatalf("expected object %q to hold the file body", key)
	}

	if err := store.Delete(context.Background(), url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != key {
		t.Fatalf("expected delete of %q, got %v", key, fake.deleted)
	}
}

func TestS3Store_DeleteBareKey(t *testing.T) {
	store, fake := newTestStore()
	if err := store.Delete(context.Background(), "users/a.jpg"); err != nil {
		t.Fatal(err)
	}
	if fake.deleted[0] != "users/a.jpg" {
		t.Fatalf("expected bare key to pass through, got %q", fake.deleted[0])
	}
}

func TestS3Store_UploadMissingFile(t *testing.T) {
	store, _ := newTestStore()
	if _, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
