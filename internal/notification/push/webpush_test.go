package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/smallbiznis/rentflow/internal/config"
	notificationdomain "github.com/smallbiznis/rentflow/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testVAPIDConfig(t *testing.T) WebPushConfig {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return WebPushConfig{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		Subscriber:      "ops@rentflow.local",
		TTLSeconds:      60,
	}
}

func testSubscription(t *testing.T, endpoint string) notificationdomain.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return notificationdomain.PushSubscription{
		ID:       1,
		UserID:   10,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestWebPushDispatcherEncryptsAndSigns(t *testing.T) {
	var gotBody []byte
	var gotEncoding, gotAuthorization, gotTTL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotEncoding = r.Header.Get("Content-Encoding")
		gotAuthorization = r.Header.Get("Authorization")
		gotTTL = r.Header.Get("TTL")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d, err := NewWebPushDispatcher(srv.Client(), testVAPIDConfig(t))
	require.NoError(t, err)

	payload := []byte(`{"title":"Lease Fully Signed"}`)
	status, err := d.Dispatch(context.Background(), testSubscription(t, srv.URL), payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "aes128gcm", gotEncoding)
	assert.Contains(t, gotAuthorization, "vapid t=")
	assert.Equal(t, "60", gotTTL)
	assert.NotContains(t, string(gotBody), "Lease Fully Signed")
}

func TestWebPushDispatcherReportsGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	d, err := NewWebPushDispatcher(srv.Client(), testVAPIDConfig(t))
	require.NoError(t, err)

	status, err := d.Dispatch(context.Background(), testSubscription(t, srv.URL), []byte(`{}`))
	assert.ErrorIs(t, err, notificationdomain.ErrDispatchFailed)
	assert.True(t, notificationdomain.IsGone(status))
}

func TestNewWebPushDispatcherRequiresVAPIDKeys(t *testing.T) {
	_, err := NewWebPushDispatcher(nil, WebPushConfig{VAPIDPublicKey: "pub"})
	assert.ErrorIs(t, err, ErrMissingVAPIDKeys)
}

func TestNewFromConfig(t *testing.T) {
	d := NewFromConfig(config.Config{Push: config.PushConfig{Dispatcher: "noop"}}, zap.NewNop())
	assert.IsType(t, NoOpDispatcher{}, d)

	d = NewFromConfig(config.Config{Push: config.PushConfig{Dispatcher: "webpush"}}, zap.NewNop())
	assert.IsType(t, NoOpDispatcher{}, d)

	vapid := testVAPIDConfig(t)
	d = NewFromConfig(config.Config{Push: config.PushConfig{
		Dispatcher:      "webpush",
		TTLSeconds:      30,
		VAPIDPublicKey:  vapid.VAPIDPublicKey,
		VAPIDPrivateKey: vapid.VAPIDPrivateKey,
	}}, zap.NewNop())
	assert.IsType(t, &WebPushDispatcher{}, d)
}
