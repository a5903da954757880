package objectsink

import (
	"context"
	"errors"
	"io"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
)

type putCall struct {
	bucket, object, contentType string
	data                        []byte
}

type fakeClient struct {
	calls   []putCall
	removed []string
	err     error
}

func (f *fakeClient) RemoveObject(ctx context.Context, bucket, object string, opts miniogo.RemoveObjectOptions) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, bucket+"/"+object)
	return nil
}

func (f *fakeClient) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.err != nil {
		return miniogo.UploadInfo{}, f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	if int64(len(data)) != size {
		return miniogo.UploadInfo{}, errors.New("size mismatch")
	}
	f.calls = append(f.calls, putCall{bucket: bucket, object: object, contentType: opts.ContentType, data: data})
	return miniogo.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestSink_Put(t *testing.T) {
	client := &fakeClient{}
	sink := NewWithClient(client, "frames", "/runs/42/")

	if err := sink.Put(context.Background(), "frame_0075.jpg", []byte{0xff, 0xd8}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(client.calls))
	}
	call := client.calls[0]
	if call.bucket != "frames" || call.object != "runs/42/frame_0075.jpg" {
		t.Errorf("unexpected target %s/%s", call.bucket, call.object)
	}
	if call.contentType != "image/jpeg" {
		t.Errorf("unexpected content type %s", call.contentType)
	}
	if got := sink.Location("frame_0075.jpg"); got != "s3://frames/runs/42/frame_0075.jpg" {
		t.Errorf("unexpected location %s", got)
	}
}

func TestSink_PutError(t *testing.T) {
	sink := NewWithClient(&fakeClient{err: errors.New("access denied")}, "frames", "")

	if err := sink.Put(context.Background(), "frame_0001.png", []byte{1}); err == nil {
		t.Error("expected error")
	}
	if got := sink.Location("frame_0001.png"); got != "s3://frames/frame_0001.png" {
		t.Errorf("unexpected location %s", got)
	}
}

func TestSink_Remove(t *testing.T) {
	client := &fakeClient{}
	sink := NewWithClient(client, "frames", "runs/42")

	if err := sink.Remove(context.Background(), "frame_0075.png"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(client.removed) != 1 || client.removed[0] != "frames/runs/42/frame_0075.png" {
		t.Errorf("unexpected removals %v", client.removed)
	}

	client.err = errors.New("access denied")
	if err := sink.Remove(context.Background(), "frame_0075.png"); err == nil {
		t.Error("expected error")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.png":  "image/png",
		"a.JPG":  "image/jpeg",
		"a.bmp":  "image/bmp",
		"a.tiff": "image/tiff",
		"a.ppm":  "image/x-portable-pixmap",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := contentType(name); got != want {
			t.Errorf("contentType(%s) = %s, want %s", name, got, want)
		}
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without bucket")
	}
}
