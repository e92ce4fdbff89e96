package hmacauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware_AllowsValidSignature(t *testing.T) {
	body := `{"connectorId":"dev"}`
	now := time.Unix(1_700_000_000, 0)
	ts, sig := Sign("secret", now, []byte(body))

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
		Logger:  zap.NewNop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/connect", strings.NewReader(body))
	req.Header.Set(SignatureHeader, sig)
	req.Header.Set(TimestampHeader, ts)
	rec := httptest.NewRecorder()

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(b)
		w.WriteHeader(http.StatusOK)
	})

	v.Middleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, seen, "body must be readable after verification")
}

func TestMiddleware_Rejects(t *testing.T) {
	body := `{"foo":"bar"}`
	now := time.Unix(1_700_000_000, 0)
	ts, sig := Sign("secret", now, []byte(body))
	staleTS, staleSig := Sign("secret", now.Add(-2*time.Minute), []byte(body))

	tests := []struct {
		name    string
		headers map[string]string
		wantErr error
	}{
		{name: "no signature", headers: map[string]string{TimestampHeader: ts}, wantErr: ErrMissingSignature},
		{name: "no timestamp", headers: map[string]string{SignatureHeader: sig}, wantErr: ErrMissingTimestamp},
		{name: "bad timestamp", headers: map[string]string{SignatureHeader: sig, TimestampHeader: "yesterday"}, wantErr: ErrMissingTimestamp},
		{name: "stale", headers: map[string]string{SignatureHeader: staleSig, TimestampHeader: staleTS}, wantErr: ErrStaleTimestamp},
		{name: "tampered", headers: map[string]string{SignatureHeader: "deadbeef", TimestampHeader: ts}, wantErr: ErrInvalidSignature},
	}

	v := &Verifier{
		Secret:  "secret",
		MaxSkew: time.Minute,
		Now:     func() time.Time { return now },
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/raffle/enter", strings.NewReader(body))
			for k, val := range tt.headers {
				req.Header.Set(k, val)
			}
			rec := httptest.NewRecorder()

			v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantErr.Error())
		})
	}
}

func TestMiddleware_PassThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("disabled", func(t *testing.T) {
		v := &Verifier{}
		assert.False(t, v.Enabled())
		rec := httptest.NewRecorder()
		v.Middleware(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/raffle/enter", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("safe method", func(t *testing.T) {
		v := &Verifier{Secret: "secret", MaxSkew: time.Minute}
		rec := httptest.NewRecorder()
		v.Middleware(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/view", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
