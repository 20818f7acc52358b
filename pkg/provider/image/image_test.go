package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	stdimage "image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-gemini-client/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/shouni/go-manga-pipeline/pkg/blob"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

// recordedRequest は httptest サーバーが受け取った最後のリクエストです。
type recordedRequest struct {
	path    string
	auth    string
	payload map[string]any
}

func newServer(t *testing.T, status int, body string, rec *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.path = r.URL.Path
			rec.auth = r.Header.Get("Authorization")
			rec.payload = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&rec.payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestStableDiffusion(t *testing.T) {
	ctx := context.Background()
	encoded := base64.StdEncoding.EncodeToString([]byte("fake-png"))

	t.Run("api_url が無ければ Configure が失敗すること", func(t *testing.T) {
		p := NewStableDiffusion("stability-basic", NewRestClient(time.Second), blob.NewMemoryStore())
		assert.Error(t, p.Configure(provider.Options{"api_key": "k"}))
	})

	t.Run("既定値と呼び出し側の指定を合成して送信すること", func(t *testing.T) {
		rec := &recordedRequest{}
		srv := newServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, rec)
		p := NewStableDiffusion("stability-basic", NewRestClient(time.Second), blob.NewMemoryStore())
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL + "/"}))

		seed := int64(42)
		res, err := p.Synthesize(ctx, "a hero", provider.ImageParams{Width: 512, Height: 512, Steps: 30, Guidance: 7, Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", res.Reference)
		assert.Equal(t, provider.JobCompleted, res.State)

		assert.Equal(t, "/text2img", rec.path)
		assert.Equal(t, "Bearer k", rec.auth)
		assert.EqualValues(t, 512, rec.payload["width"])
		assert.EqualValues(t, 7, rec.payload["cfg_scale"])
		assert.EqualValues(t, 42, rec.payload["seed"])
		assert.Equal(t, "DPM++ 2M Karras", rec.payload["sampler"])
		assert.Equal(t, stableDiffusionNegative, rec.payload["negative_prompt"])
	})

	t.Run("base64 応答は blob store に保存されること", func(t *testing.T) {
		for name, body := range map[string]string{
			"images":      `{"images":["` + encoded + `"]}`,
			"output.data": `{"output":{"data":"` + encoded + `"}}`,
		} {
			t.Run(name, func(t *testing.T) {
				store := blob.NewMemoryStore()
				srv := newServer(t, http.StatusOK, body, nil)
				p := NewStableDiffusion("stability-basic", NewRestClient(time.Second), store)
				require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL}))

				res, err := p.Synthesize(ctx, "x", provider.ImageParams{})
				require.NoError(t, err)
				obj, ok := store.Get(res.Reference)
				require.True(t, ok)
				assert.Equal(t, []byte("fake-png"), obj.Data)
			})
		}
	})

	t.Run("想定外の応答形式と 4xx は ProviderError になること", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"status":"ok"}`, nil)
		p := NewStableDiffusion("stability-basic", NewRestClient(time.Second), blob.NewMemoryStore())
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL}))
		_, err := p.Synthesize(ctx, "x", provider.ImageParams{})
		assert.True(t, errors.Is(err, domain.ErrProvider))

		srv = newServer(t, http.StatusUnauthorized, `{"message":"bad key"}`, nil)
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL}))
		_, err = p.Synthesize(ctx, "x", provider.ImageParams{})
		var perr *domain.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
		assert.Contains(t, perr.Message, "bad key")
	})
}

func TestNovelAI(t *testing.T) {
	ctx := context.Background()

	t.Run("Guidance を scale として送信し画像を保存すること", func(t *testing.T) {
		rec := &recordedRequest{}
		encoded := base64.StdEncoding.EncodeToString([]byte("nai"))
		srv := newServer(t, http.StatusOK, `{"image":"`+encoded+`"}`, rec)
		store := blob.NewMemoryStore()
		p := NewNovelAI(NewRestClient(time.Second), store)
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL}))

		res, err := p.Synthesize(ctx, "a girl", provider.ImageParams{Guidance: 9, Extra: map[string]any{"model": "nai-diffusion-2"}})
		require.NoError(t, err)
		assert.Equal(t, 1, store.Len())
		assert.NotEmpty(t, res.Reference)

		assert.Equal(t, "/ai/generate-image", rec.path)
		assert.Equal(t, "a girl", rec.payload["input"])
		assert.Equal(t, "nai-diffusion-2", rec.payload["model"])
		params := rec.payload["parameters"].(map[string]any)
		assert.EqualValues(t, 9, params["scale"])
		assert.EqualValues(t, 832, params["width"])
		assert.Equal(t, "k_euler_ancestral", params["sampler"])
	})

	t.Run("画像が無い応答は ProviderError になること", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{}`, nil)
		p := NewNovelAI(NewRestClient(time.Second), blob.NewMemoryStore())
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": srv.URL}))
		_, err := p.Synthesize(ctx, "x", provider.ImageParams{})
		assert.True(t, errors.Is(err, domain.ErrProvider))
	})
}

func TestMidjourney(t *testing.T) {
	ctx := context.Background()

	newJobServer := func(t *testing.T, pendingPolls int32, final string) (*httptest.Server, *atomic.Int32, *recordedRequest) {
		t.Helper()
		polls := &atomic.Int32{}
		rec := &recordedRequest{}
		mux := http.NewServeMux()
		mux.HandleFunc("POST /imagine", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			rec.payload = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&rec.payload)
			_, _ = w.Write([]byte(`{"job_id":"job-1"}`))
		})
		mux.HandleFunc("GET /job/job-1", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if polls.Add(1) <= pendingPolls {
				_, _ = w.Write([]byte(`{"status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(final))
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		return srv, polls, rec
	}

	configure := func(t *testing.T, url string) *Midjourney {
		p := NewMidjourney(NewRestClient(time.Second))
		require.NoError(t, p.Configure(provider.Options{"api_key": "k", "api_url": url, "poll_interval": "10ms"}))
		return p
	}

	t.Run("完了までポーリングして画像 URL を返すこと", func(t *testing.T) {
		srv, polls, rec := newJobServer(t, 2, `{"status":"completed","image_url":"https://mj.example.com/1.png"}`)
		p := configure(t, srv.URL)

		res, err := p.Synthesize(ctx, "a castle", provider.ImageParams{Width: 1536, Height: 1536})
		require.NoError(t, err)
		assert.Equal(t, "https://mj.example.com/1.png", res.Reference)
		assert.Equal(t, "job-1", res.JobID)
		assert.EqualValues(t, 3, polls.Load())
		assert.Equal(t, "1536x1536", rec.payload["dimensions"])
		assert.Equal(t, "manga", rec.payload["style"])
	})

	t.Run("wait=false ならジョブ ID だけを返すこと", func(t *testing.T) {
		srv, polls, _ := newJobServer(t, 0, `{"status":"completed","image_url":"u"}`)
		p := configure(t, srv.URL)

		wait := false
		res, err := p.Synthesize(ctx, "x", provider.ImageParams{Wait: &wait})
		require.NoError(t, err)
		assert.True(t, res.Pending())
		assert.Equal(t, "job-1", res.JobID)
		assert.Zero(t, polls.Load())
	})

	t.Run("ジョブ失敗は ProviderError になること", func(t *testing.T) {
		srv, _, _ := newJobServer(t, 0, `{"status":"failed","error":"nsfw filter"}`)
		p := configure(t, srv.URL)

		_, err := p.Synthesize(ctx, "x", provider.ImageParams{})
		assert.True(t, errors.Is(err, domain.ErrProvider))
		assert.Contains(t, err.Error(), "nsfw filter")
	})

	t.Run("完了しないジョブは TimeoutError になること", func(t *testing.T) {
		srv, _, _ := newJobServer(t, 1<<20, `{}`)
		p := configure(t, srv.URL)

		_, err := p.Synthesize(ctx, "x", provider.ImageParams{Timeout: 50 * time.Millisecond})
		assert.True(t, errors.Is(err, domain.ErrTimeout))
	})
}

type mockGenerator struct {
	resp *gemini.Response
	err  error
	opts gemini.GenerateOptions
}

func (m *mockGenerator) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.opts = opts
	return m.resp, m.err
}

func inlineResponse(data []byte, mimeType string) *gemini.Response {
	return &gemini.Response{
		Images: [][]byte{data},
		RawResponse: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}}},
		}}},
	}
}

func TestGeminiImage(t *testing.T) {
	ctx := context.Background()

	t.Run("PNG を JPEG に圧縮して保存すること", func(t *testing.T) {
		gen := &mockGenerator{resp: inlineResponse(pngBytes(t), "image/png")}
		store := blob.NewMemoryStore()
		p := NewGeminiImage(gen, store)
		require.NoError(t, p.Configure(provider.Options{}))

		seed := int64(7)
		res, err := p.Synthesize(ctx, "a cat", provider.ImageParams{Width: 768, Height: 1024, Seed: &seed})
		require.NoError(t, err)

		obj, ok := store.Get(res.Reference)
		require.True(t, ok)
		assert.Equal(t, "image/jpeg", obj.MimeType)
		assert.Equal(t, "3:4", gen.opts.AspectRatio)
		require.NotNil(t, gen.opts.Seed)
		assert.Equal(t, int64(7), *gen.opts.Seed)
	})

	t.Run("RawResponse が無くても画像の形式を判別すること", func(t *testing.T) {
		gen := &mockGenerator{resp: &gemini.Response{Images: [][]byte{pngBytes(t)}}}
		store := blob.NewMemoryStore()
		p := NewGeminiImage(gen, store)
		require.NoError(t, p.Configure(provider.Options{}))

		res, err := p.Synthesize(ctx, "a cat", provider.ImageParams{})
		require.NoError(t, err)
		obj, ok := store.Get(res.Reference)
		require.True(t, ok)
		assert.Equal(t, "image/jpeg", obj.MimeType)
		assert.Empty(t, gen.opts.AspectRatio)
	})

	t.Run("画像が含まれない応答は ProviderError になること", func(t *testing.T) {
		p := NewGeminiImage(&mockGenerator{resp: &gemini.Response{}}, blob.NewMemoryStore())
		require.NoError(t, p.Configure(provider.Options{}))
		_, err := p.Synthesize(ctx, "x", provider.ImageParams{})
		assert.True(t, errors.Is(err, domain.ErrProvider))
	})
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{512, 512, "1:1"},
		{832, 1216, "2:3"},
		{1920, 1080, "16:9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, aspectRatio(tt.w, tt.h))
	}
}
