package i18nhttp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwan-Yee/i18nhttp"
	"github.com/Kwan-Yee/i18nhttp/querycache"
)

func localeServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"key":"passing","path":%q}`, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBackendLoad(t *testing.T) {
	srv := localeServer(t, nil)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "passing", result.Data["key"])
	assert.Equal(t, "/locales/en/common.json", result.Data["path"])
}

func TestBackendRead(t *testing.T) {
	srv := localeServer(t, nil)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	var (
		gotErr    error
		gotResult *i18nhttp.Result
	)
	b.Read([]string{"en"}, "common", func(err error, result *i18nhttp.Result) {
		gotErr = err
		gotResult = result
	})

	require.NoError(t, gotErr)
	require.NotNil(t, gotResult)
	assert.Equal(t, "passing", gotResult.Data["key"])
}

func TestBackendReadRetryableSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	var (
		gotErr    error
		gotResult *i18nhttp.Result
	)
	b.Read([]string{"en"}, "common", func(err error, result *i18nhttp.Result) {
		gotErr = err
		gotResult = result
	})

	require.Error(t, gotErr)
	assert.True(t, i18nhttp.IsRetryable(gotErr))
	require.NotNil(t, gotResult)
	assert.Equal(t, 0, gotResult.Status)
}

func TestBackendReadFatalPassesNilResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	var (
		gotErr    error
		gotResult *i18nhttp.Result
	)
	b.Read([]string{"en"}, "common", func(err error, result *i18nhttp.Result) {
		gotErr = err
		gotResult = result
	})

	require.Error(t, gotErr)
	assert.False(t, i18nhttp.IsRetryable(gotErr))
	assert.Nil(t, gotResult)
}

func TestBackendLoadParseFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.Error(t, err)
	assert.False(t, i18nhttp.IsRetryable(err))
	assert.Contains(t, err.Error(), "failed parsing")
}

func TestBackendLoadEmptyTemplateIsNoOp(t *testing.T) {
	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPathFunc(func(_ context.Context, _, _ []string) (string, error) {
			return "", nil
		}),
	)
	t.Cleanup(func() { _ = b.Close() })

	result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBackendDirectPathSingleAttempt(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.Error(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestBackendCacheFlagAloneFallsBackToDirect(t *testing.T) {
	var hits atomic.Int64
	srv := localeServer(t, &hits)

	// Enabled flag without a client handle: loads take the direct path, so
	// repeated loads always reach the network.
	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithCacheEnabled(),
	)
	t.Cleanup(func() { _ = b.Close() })

	for i := 0; i < 3; i++ {
		_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), hits.Load())

	// Outcomes match a backend with caching disabled outright.
	plain := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = plain.Close() })

	got, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	want, err := plain.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Data["key"], got.Data["key"])
}

func TestBackendCachePathDeduplicates(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"key":"passing"}`))
	}))
	t.Cleanup(srv.Close)

	qc := querycache.New()
	t.Cleanup(func() { _ = qc.Close() })

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithQueryClient(qc),
		i18nhttp.WithCacheEnabled(),
	)
	t.Cleanup(func() { _ = b.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
			assert.NoError(t, err)
			assert.NotNil(t, result)
		}()
	}

	// Hold the single transport call open until every goroutine is in flight.
	require.Eventually(t, func() bool { return hits.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// A fresh cached entry serves later loads without the network.
	_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load())
}

func TestBackendCachePathRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"key":"recovered"}`))
	}))
	t.Cleanup(srv.Close)

	qc := querycache.New()
	t.Cleanup(func() { _ = qc.Close() })

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithQueryClient(qc),
		i18nhttp.WithCacheEnabled(),
		i18nhttp.WithRetries(2),
		i18nhttp.WithRetryDelay(func(int) time.Duration { return 0 }),
	)
	t.Cleanup(func() { _ = b.Close() })

	result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "recovered", result.Data["key"])
	assert.Equal(t, int64(2), hits.Load())
}

func TestBackendSubmit(t *testing.T) {
	type submission struct {
		path string
		body map[string]any
	}

	var (
		mu   sync.Mutex
		seen []submission
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		seen = append(seen, submission{path: r.URL.Path, body: body})
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithAddPath(srv.URL+"/locales/add/{{lng}}/{{ns}}"),
	)
	t.Cleanup(func() { _ = b.Close() })

	err := b.Submit(context.Background(), []string{"en", "de"}, "common", "greeting", "Hello")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)

	paths := []string{seen[0].path, seen[1].path}
	assert.ElementsMatch(t, []string{"/locales/add/en/common", "/locales/add/de/common"}, paths)
	assert.Equal(t, map[string]any{"greeting": "Hello"}, seen[0].body)
	assert.Equal(t, map[string]any{"greeting": "Hello"}, seen[1].body)
}

func TestBackendSubmitWithoutAddPath(t *testing.T) {
	b := i18nhttp.New(context.Background())
	t.Cleanup(func() { _ = b.Close() })

	err := b.Submit(context.Background(), []string{"en"}, "common", "k", "v")
	assert.NoError(t, err)
}

func TestBackendCreateCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithAddPath(srv.URL+"/add/{{lng}}/{{ns}}"),
	)
	t.Cleanup(func() { _ = b.Close() })

	called := false
	b.Create([]string{"en"}, "common", "k", "v", func(err error) {
		called = true
		assert.NoError(t, err)
	})
	assert.True(t, called)
}

func TestBackendCustomHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithHeaders(map[string]string{"Authorization": "Bearer secret"}),
	)
	t.Cleanup(func() { _ = b.Close() })

	_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestBackendCustomParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("greeting = \"Hello\"\n"))
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.toml"),
		i18nhttp.WithParse(i18nhttp.ParseTOML),
	)
	t.Cleanup(func() { _ = b.Close() })

	result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Hello", result.Data["greeting"])
}

func TestBackendEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
	)
	t.Cleanup(func() { _ = b.Close() })

	result, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Data)
}

func TestBackendReloadInterval(t *testing.T) {
	var hits atomic.Int64
	srv := localeServer(t, &hits)

	b := i18nhttp.New(context.Background(),
		i18nhttp.WithLoadPath(srv.URL+"/locales/{{lng}}/{{ns}}.json"),
		i18nhttp.WithReloadInterval(20*time.Millisecond),
	)

	_, err := b.Load(context.Background(), []string{"en"}, []string{"common"})
	require.NoError(t, err)

	b.Start(context.Background())
	t.Cleanup(func() { _ = b.Close() })

	require.Eventually(t, func() bool {
		return hits.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
	settled := hits.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, hits.Load(), settled+1)
}

func TestBackendConfigFromEnv(t *testing.T) {
	t.Setenv("I18N_LOAD_PATH", "/i18n/{{lng}}/{{ns}}.json")
	t.Setenv("I18N_CACHE_ENABLED", "true")
	t.Setenv("I18N_STALE_TIME", "90s")
	t.Setenv("I18N_RETRY_COUNT", "5")

	cfg, err := i18nhttp.ConfigFromEnv[i18nhttp.Configuration]()
	require.NoError(t, err)

	assert.Equal(t, "/i18n/{{lng}}/{{ns}}.json", cfg.LoadPath)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.StaleTime)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 10*time.Minute, cfg.CacheTime)
	assert.True(t, cfg.RefetchOnReconnect)
	assert.False(t, cfg.RefetchOnFocus)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
