package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/qet/internal/errors"
)

// countingServer records how many requests reached it.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// closedURL returns the address of a server that is no longer listening.
func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) *errors.QetError {
	t.Helper()
	require.Error(t, err)
	qErr, ok := errors.As(err)
	require.True(t, ok, "expected *QetError, got %T: %v", err, err)
	require.Equal(t, code, qErr.Code, "message: %s", qErr.Message)
	return qErr
}

func TestNew_KnownProviders(t *testing.T) {
	for _, name := range Names {
		tr, err := New(name, "key", Options{})
		require.NoError(t, err)
		require.Equal(t, name, tr.Name())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	for _, name := range []string{"", "bing", "DeepL", " deepl"} {
		_, err := New(name, "key", Options{})
		qErr := requireCode(t, err, errors.ErrUnknownProvider)
		require.Equal(t, name, qErr.Provider)
	}
}

func TestIsSupported(t *testing.T) {
	for _, name := range Names {
		require.True(t, IsSupported(name), name)
	}
	for _, name := range []string{"", "bing", "DeepL", " deepl"} {
		require.False(t, IsSupported(name), name)
	}
}

func TestMaxChars(t *testing.T) {
	limits := map[string]int{DeepL: 5000, Google: 5000, OpenAI: 4000}
	for name, want := range limits {
		tr, err := New(name, "key", Options{})
		require.NoError(t, err)
		require.Equal(t, want, tr.MaxChars(), name)
	}
}

func TestTranslate_EmptyInputNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, name := range Names {
		for _, text := range []string{"", "   ", "\n\t "} {
			tr, err := New(name, "key", Options{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = tr.Translate(context.Background(), text, TargetLang)
			qErr := requireCode(t, err, errors.ErrEmptyInput)
			require.Equal(t, name, qErr.Provider)
		}
	}
	require.Zero(t, hits.Load())
}

func TestTranslate_LengthExceededNoNetwork(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, name := range Names {
		tr, err := New(name, "key", Options{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = tr.Translate(context.Background(), strings.Repeat("a", tr.MaxChars()+1), TargetLang)
		qErr := requireCode(t, err, errors.ErrLengthExceeded)
		require.Equal(t, tr.MaxChars(), qErr.Details["max_chars"])
	}
	require.Zero(t, hits.Load())
}

func TestTranslate_LengthCountsCharactersNotBytes(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	tr, err := New(OpenAI, "key", Options{BaseURL: srv.URL})
	require.NoError(t, err)

	// 4000 three-byte characters is within the 4000-character limit.
	_, err = tr.Translate(context.Background(), strings.Repeat("語", 4000), TargetLang)
	require.NoError(t, err)
}

func TestTranslate_NetworkError(t *testing.T) {
	url := closedURL(t)

	for _, name := range Names {
		tr, err := New(name, "key", Options{BaseURL: url})
		require.NoError(t, err)

		_, err = tr.Translate(context.Background(), "hola", TargetLang)
		qErr := requireCode(t, err, errors.ErrNetworkError)
		require.Equal(t, name, qErr.Provider)
		require.NotNil(t, qErr.Unwrap())
		require.True(t, strings.HasPrefix(qErr.Message, "Network error: "))
	}
}

func TestTranslate_MalformedSuccessBody(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`<html>gateway</html>`))
	})

	for _, name := range Names {
		tr, err := New(name, "key", Options{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = tr.Translate(context.Background(), "hola", TargetLang)
		requireCode(t, err, errors.ErrProviderError)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"Bad request"}`, "Bad request"},
		{`{"error":{"message":"API key not valid"}}`, "API key not valid"},
		{`not json`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, errorMessage([]byte(tt.body)), tt.body)
	}
}
