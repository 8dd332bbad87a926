package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/funnelstore/client"
	"github.com/foomo/funnelstore/pkg/handler"
	"github.com/foomo/funnelstore/pkg/snapshot"
	"github.com/foomo/funnelstore/pkg/storage"
	"github.com/foomo/funnelstore/responses"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocloud.dev/blob/memblob"
	"golang.org/x/net/nettest"
)

const (
	pathAPI    = "/api"
	testSecret = "s3cret"
)

func TestInvalidClientInit(t *testing.T) {
	for _, server := range []string{
		"",
		"bogus",
		"htt:/notaurl",
		"htts://notaurl",
		"/path/segment/only",
		"http://",
	} {
		c, err := client.New(server)
		assert.Nil(t, c, server)
		assert.Error(t, err, server)
	}
}

func TestClient_Scenario(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, initServer(t), testSecret)

	doc, err := c.Embed(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tiles":[],"table":[]}`, string(doc))

	docA := snapshot.Document(`{"tiles":[{"id":"a"}],"table":[]}`)
	docB := snapshot.Document(`{"tiles":[{"id":"b"}],"table":[{"row":1}]}`)

	commit, err := c.Save(ctx, docA)
	require.NoError(t, err)
	assert.True(t, commit.Success)
	assert.NotEmpty(t, commit.Timestamp)

	_, err = c.Save(ctx, docB)
	require.NoError(t, err)

	backups, err := c.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	restored, err := c.Restore(ctx, backups[0].Key)
	require.NoError(t, err)
	assert.JSONEq(t, string(docA), string(restored))

	current, err := c.Current(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(docB), string(current))

	_, err = c.Import(ctx, restored)
	require.NoError(t, err)
	backups, err = c.Backups(ctx)
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	embedded, err := c.Embed(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(docA), string(embedded))
}

func TestClient_ImportSaveRestore(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, initServer(t), testSecret)

	docA := snapshot.Document(`{"tiles":[{"id":"a"}],"table":[]}`)
	docB := snapshot.Document(`{"tiles":[],"table":[{"row":1}]}`)

	_, err := c.Import(ctx, docA)
	require.NoError(t, err)
	backups, err := c.Backups(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)

	_, err = c.Save(ctx, docB)
	require.NoError(t, err)
	backups, err = c.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	restored, err := c.Restore(ctx, backups[0].Key)
	require.NoError(t, err)
	assert.JSONEq(t, string(docA), string(restored))

	current, err := c.Current(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(docB), string(current))
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	server := initServer(t)

	_, err := newClient(t, server, "wrong").Backups(ctx)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// the public view needs no token
	_, err = newClient(t, server, "").Embed(ctx)
	require.NoError(t, err)

	c := newClient(t, server, testSecret)
	_, err = c.Restore(ctx, "")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = c.Restore(ctx, "funnel_backup_1999-01-01-00-00-00")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.EqualError(t, err, "Backup not found")

	_, err = c.Save(ctx, nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var respErr *responses.Error
	require.True(t, errors.As(err, &respErr), "expected a response error, got %v", err)
	return respErr.Status
}

func newClient(tb testing.TB, server *httptest.Server, token string) *client.Client {
	tb.Helper()
	c, err := client.New(server.URL+pathAPI,
		client.WithToken(token),
		client.WithHTTPClient(server.Client()),
	)
	require.NoError(tb, err)
	return c
}

func initServer(tb testing.TB) *httptest.Server {
	tb.Helper()
	l := zaptest.NewLogger(tb)
	s := storage.NewBlobStorageFromBucket(memblob.OpenBucket(nil))
	tb.Cleanup(func() { _ = s.Close() })

	ln, err := nettest.NewLocalListener("tcp")
	require.NoError(tb, err)

	server := httptest.NewUnstartedServer(handler.NewHTTP(l, snapshot.New(l, s),
		handler.WithAuthenticator(handler.NewBearerAuthenticator(testSecret)),
	))
	_ = server.Listener.Close()
	server.Listener = ln
	server.Start()
	tb.Cleanup(server.Close)
	return server
}
