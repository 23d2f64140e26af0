package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/pipeline"
)

type stubEngine struct {
	reply diagnose.Reply
	err   error
}

func (s *stubEngine) Name() string     { return "gpt" }
func (s *stubEngine) GetModel() string { return "gpt-4o" }
func (s *stubEngine) Classify(context.Context, diagnose.ClassificationRequest) (diagnose.Reply, error) {
	return s.reply, s.err
}

const blastReply = `{"disease_name":"Blast","confidence_score":"0.92","next_steps":"Apply fungicide."}`

func newHandle(eng diagnose.Engine, ping func(context.Context) error) *Handle {
	x, _ := diagnose.NewExtractor(diagnose.ModeBalanced)
	p := &pipeline.Pipeline{
		Engines:       &diagnose.Engines{Default: "gpt", OpenAI: eng},
		Extractor:     x,
		PromptVersion: "v2",
	}
	return New(p, Options{Engines: []string{"gpt"}, DefaultEngine: "gpt", MaxUploadBytes: 1 << 20, Ping: ping})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "leaf.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.WriteField("llm_name", "gpt")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/classify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndex(t *testing.T) {
	h := newHandle(&stubEngine{}, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="image"`, `accept=".jpeg,.jpg,.gif,.png"`, `<option value="gpt" selected>`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<table") {
		t.Error("index must not render a result table")
	}
}

func TestClassify_Form(t *testing.T) {
	tests := []struct {
		name     string
		eng      *stubEngine
		field    string
		data     []byte
		wantCode int
		want     []string
		noTable  bool
	}{
		{
			name:     "presented",
			eng:      &stubEngine{reply: diagnose.Reply{Text: "Here you go: " + blastReply}},
			field:    "image",
			wantCode: http.StatusOK,
			want:     []string{"<th>Disease Name</th>", "<td>Blast</td>", "<td>0.92</td>", "<td>Apply fungicide.</td>", "leaf.png", `<img src="data:image/png;base64,`},
		},
		{
			name:     "wrong field name",
			eng:      &stubEngine{reply: diagnose.Reply{Text: blastReply}},
			field:    "file",
			wantCode: http.StatusBadRequest,
			want:     []string{"Error encoding image:"},
			noTable:  true,
		},
		{
			name:     "not an image",
			eng:      &stubEngine{reply: diagnose.Reply{Text: blastReply}},
			field:    "image",
			data:     []byte("just some text, not pixels"),
			wantCode: http.StatusBadRequest,
			want:     []string{"Error encoding image:"},
			noTable:  true,
		},
		{
			name:     "transport failure",
			eng:      &stubEngine{err: &diagnose.TransportError{Engine: "gpt", StatusCode: 500, Body: "boom"}},
			field:    "image",
			wantCode: http.StatusBadGateway,
			want:     []string{"API request error:", "boom"},
			noTable:  true,
		},
		{
			name:     "no json in reply",
			eng:      &stubEngine{reply: diagnose.Reply{Text: "I am not sure what this is"}},
			field:    "image",
			wantCode: http.StatusUnprocessableEntity,
			want:     []string{"Unexpected response format. Please try again.", "I am not sure what this is"},
			noTable:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = pngBytes(t)
			}
			rec := httptest.NewRecorder()
			newHandle(tt.eng, nil).Routes().ServeHTTP(rec, uploadRequest(t, tt.field, data))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q", w)
				}
			}
			if tt.noTable && strings.Contains(body, "<table") {
				t.Error("failed submission must not render a table")
			}
		})
	}
}

func TestClassifyJSON(t *testing.T) {
	img := base64.StdEncoding.EncodeToString(pngBytes(t))

	tests := []struct {
		name     string
		eng      *stubEngine
		body     string
		wantCode int
		wantKind string
	}{
		{"ok", &stubEngine{reply: diagnose.Reply{Text: blastReply}}, `{"llm_name":"gpt","image_b64":"` + img + `"}`, http.StatusOK, ""},
		{"data url", &stubEngine{reply: diagnose.Reply{Text: blastReply}}, `{"image_b64":"data:image/png;base64,` + img + `"}`, http.StatusOK, ""},
		{"bad base64", &stubEngine{}, `{"image_b64":"%%%"}`, http.StatusBadRequest, diagnose.KindEncoding},
		{"unknown engine", &stubEngine{}, `{"llm_name":"llama","image_b64":"` + img + `"}`, http.StatusBadGateway, diagnose.KindTransport},
		{"transport", &stubEngine{err: &diagnose.TransportError{Engine: "gpt", Err: errors.New("dial tcp: refused")}}, `{"image_b64":"` + img + `"}`, http.StatusBadGateway, diagnose.KindTransport},
		{"missing key", &stubEngine{reply: diagnose.Reply{Text: `{"disease_name":"Blast"}`}}, `{"image_b64":"` + img + `"}`, http.StatusUnprocessableEntity, diagnose.KindExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(tt.body))
			newHandle(tt.eng, nil).Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var got ClassifyResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatal(err)
				}
				if got.DiseaseName != "Blast" || got.ConfidenceScore != "0.92" || got.NextSteps != "Apply fungicide." {
					t.Errorf("response = %+v", got)
				}
				if got.ID == "" || got.Engine != "gpt" || got.Model != "gpt-4o" {
					t.Errorf("metadata = %+v", got)
				}
				return
			}
			var got ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got.Kind != tt.wantKind || got.Error == "" {
				t.Errorf("error response = %+v", got)
			}
			if tt.wantKind == diagnose.KindExtraction && got.Raw != `{"disease_name":"Blast"}` {
				t.Errorf("Raw = %q", got.Raw)
			}
		})
	}
}

func TestClassifyJSON_BadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader("{"))
	newHandle(&stubEngine{}, nil).Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		ping func(context.Context) error
		want int
	}{
		{"no db", nil, http.StatusOK},
		{"db ok", func(context.Context) error { return nil }, http.StatusOK},
		{"db down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newHandle(&stubEngine{}, tt.ping).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestContext_Deadline(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/classify?timeoutSec=5", nil)
	ctx, cancel := requestContext(req)
	defer cancel()
	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("no deadline")
	}
	if left := time.Until(dl); left > 5*time.Second || left < 4*time.Second {
		t.Errorf("deadline in %v, want ~5s", left)
	}
}
