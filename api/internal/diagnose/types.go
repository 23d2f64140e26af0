package diagnose

import "paddy-doctor/api/internal/util"

// ClassificationRequest is built once per submission and never mutated.
type ClassificationRequest struct {
	ImageBytes []byte
	Encoded    string // standard base64 of ImageBytes
	MIME       string // image/jpeg | image/png | image/gif
}

func (r ClassificationRequest) DataURL() string {
	return util.MakeDataURL(r.MIME, r.Encoded)
}

// ClassificationResult is either fully populated (Present) or the zero value.
type ClassificationResult struct {
	DiseaseName     string `json:"disease_name"`
	ConfidenceScore string `json:"confidence_score"`
	NextSteps       string `json:"next_steps"`
	Present         bool   `json:"-"`
}

// Reply: ответ модели: текст первой completion и сырое тело ответа.
type Reply struct {
	Text string
	Raw  []byte
}

// Generation: фиксированные параметры генерации.
type Generation struct {
	Temperature      float32
	MaxTokens        int32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

var DefaultGeneration = Generation{
	Temperature: 0,
	MaxTokens:   256,
	TopP:        0.5,
}

// UserInstruction goes alongside the image in the user turn.
const UserInstruction = "Identify the disease in the rice plant."
