package handle

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/pipeline"
	"paddy-doctor/api/internal/present"
)

func (h *Handle) baseView(selected string) present.View {
	if selected == "" {
		selected = h.defEngine
	}
	return present.View{Engines: h.engines, Selected: selected}
}

func (h *Handle) render(w http.ResponseWriter, code int, v present.View) {
	var buf bytes.Buffer
	if err := h.pres.RenderHTML(&buf, v); err != nil {
		log.Printf("render page: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.baseView(""))
}

// Classify handles the upload form: multipart field "image", optional "llm_name".
func (h *Handle) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		v := present.ErrorView(h.baseView(""), &diagnose.EncodingError{Reason: "failed to parse form", Err: err})
		h.render(w, http.StatusBadRequest, v)
		return
	}
	llmName := strings.TrimSpace(r.FormValue("llm_name"))
	view := h.baseView(llmName)

	file, header, err := r.FormFile("image")
	if err != nil {
		v := present.ErrorView(view, &diagnose.EncodingError{Reason: "no image file provided; use 'image' as the form field name"})
		h.render(w, http.StatusBadRequest, v)
		return
	}
	defer file.Close()
	log.Printf("received file: %s, size: %d bytes", header.Filename, header.Size)
	view.FileName = header.Filename

	ctx, cancel := requestContext(r)
	defer cancel()

	out := h.pipe.Run(ctx, llmName, file)
	view.Image = present.Preview(out.Request)
	if out.State != pipeline.Presented {
		h.render(w, statusFor(out.Err), present.ErrorView(view, out.Err))
		return
	}
	view.Table = present.NewTable(out.Result)
	h.render(w, http.StatusOK, view)
}

type ClassifyRequest struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"` // raw base64 or data: URL
}

type ClassifyResponse struct {
	ID              string `json:"id"`
	DiseaseName     string `json:"disease_name"`
	ConfidenceScore string `json:"confidence_score"`
	NextSteps       string `json:"next_steps"`
	Engine          string `json:"engine"`
	Model           string `json:"model"`
}

type ErrorResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

func (h *Handle) ClassifyJSON(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, h.maxUpload*4/3+4096))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad json: " + err.Error()})
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	img, encErr := diagnose.EncodeBase64(req.ImageB64)
	out := h.pipe.RunEncoded(ctx, req.LLMName, img, encErr)
	if out.State != pipeline.Presented {
		resp := ErrorResponse{
			ID:    out.ID,
			Error: out.Err.Error(),
			Kind:  diagnose.ErrorKind(out.Err),
		}
		var xe *diagnose.ExtractionError
		if errors.As(out.Err, &xe) {
			resp.Raw = xe.Raw
		}
		writeJSON(w, statusFor(out.Err), resp)
		return
	}

	writeJSON(w, http.StatusOK, ClassifyResponse{
		ID:              out.ID,
		DiseaseName:     out.Result.DiseaseName,
		ConfidenceScore: out.Result.ConfidenceScore,
		NextSteps:       out.Result.NextSteps,
		Engine:          out.Engine,
		Model:           out.Model,
	})
}

func statusFor(err error) int {
	switch diagnose.ErrorKind(err) {
	case diagnose.KindEncoding:
		return http.StatusBadRequest
	case diagnose.KindTransport:
		return http.StatusBadGateway
	case diagnose.KindExtraction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
