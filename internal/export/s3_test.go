package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Uploader_Validation(t *testing.T) {
	_, err := NewS3Uploader(S3Config{})
	require.Error(t, err)

	_, err = NewS3Uploader(S3Config{Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestS3Uploader_Key(t *testing.T) {
	u, err := NewS3Uploader(S3Config{Bucket: "b", Prefix: "/exports/zendesk/", KeyID: "k", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "exports/zendesk/out.csv", u.Key("/tmp/x/out.csv"))

	u, err = NewS3Uploader(S3Config{Bucket: "b", KeyID: "k", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "out.csv", u.Key("out.csv"))
}

func TestS3Uploader_Upload(t *testing.T) {
	var (
		gotMethod, gotPath, gotType, gotAuth string
		gotBody                              []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := NewS3Uploader(S3Config{
		Bucket:   "audit",
		Prefix:   "zendesk",
		Region:   "eu-central",
		Endpoint: srv.URL,
		KeyID:    "AKIDEXAMPLE",
		Secret:   "secret",
	})
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "access_logs_a-to-b.json")
	require.NoError(t, os.WriteFile(local, []byte(`[]`), 0o644))

	loc, err := u.Upload(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "s3://audit/zendesk/access_logs_a-to-b.json", loc)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/audit/zendesk/access_logs_a-to-b.json", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.True(t, strings.Contains(gotAuth, "Credential=AKIDEXAMPLE/"), gotAuth)
	assert.Equal(t, `[]`, string(gotBody))
}

func TestS3Uploader_UploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	}))
	t.Cleanup(srv.Close)

	u, err := NewS3Uploader(S3Config{Bucket: "audit", Endpoint: srv.URL, KeyID: "k", Secret: "s"})
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(local, []byte("a\n"), 0o644))

	_, err = u.Upload(context.Background(), local)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put s3://audit/x.csv")
}

func TestS3Uploader_MissingFile(t *testing.T) {
	u, err := NewS3Uploader(S3Config{Bucket: "audit", KeyID: "k", Secret: "s"})
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}
