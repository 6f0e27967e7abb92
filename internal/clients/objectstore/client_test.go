package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>datasets</Name>
  <Prefix>digits/</Prefix>
  <KeyCount>3</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>digits/</Key><Size>0</Size></Contents>
  <Contents><Key>digits/0001.png</Key><Size>120</Size></Contents>
  <Contents><Key>digits/0002.png</Key><Size>118</Size></Contents>
</ListBucketResult>`

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestList(t *testing.T) {
	var gotPath, gotPrefix string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrefix = r.URL.Query().Get("prefix")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(listResponse))
	}))
	defer srv.Close()

	client, err := New(context.Background(), Config{
		Bucket:          "datasets",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "datasets", client.Bucket())

	keys, err := client.List(context.Background(), "digits/")
	require.NoError(t, err)
	assert.Equal(t, []string{"digits/0001.png", "digits/0002.png"}, keys)
	assert.Equal(t, "/datasets", gotPath)
	assert.Equal(t, "digits/", gotPrefix)
}
