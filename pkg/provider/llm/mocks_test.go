package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// mockDoer は最後のリクエストを記録し、固定の応答を返します。
type mockDoer struct {
	body    []byte
	err     error
	lastReq *http.Request
	payload map[string]any
}

func (m *mockDoer) DoRequest(req *http.Request) ([]byte, error) {
	m.lastReq = req
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(data, &m.payload)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.body, nil
}

// mockGenerator は gemini.Client の応答を模倣します。
type mockGenerator struct {
	text      string
	err       error
	lastModel string
	lastParts []*genai.Part
	lastOpts  gemini.GenerateOptions
}

func (m *mockGenerator) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.lastModel = model
	m.lastParts = parts
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &gemini.Response{Text: m.text}, nil
}

// echoDoer は Inference API の既定動作のように、inputs の後ろに回答を続けて返します。
type echoDoer struct {
	answer  string
	payload map[string]any
}

func (m *echoDoer) DoRequest(req *http.Request) ([]byte, error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &m.payload); err != nil {
		return nil, err
	}
	inputs, _ := m.payload["inputs"].(string)
	return json.Marshal([]map[string]string{{"generated_text": inputs + " " + m.answer}})
}
