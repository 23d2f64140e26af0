package pipeline

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/util"
)

type State string

const (
	Idle       State = "idle"
	Encoding   State = "encoding"
	Requesting State = "requesting"
	Extracting State = "extracting"
	Presented  State = "presented"
	Failed     State = "failed"
)

func (s State) Terminal() bool { return s == Presented || s == Failed }

// Outcome is the result of one submission; nothing in it outlives the request.
type Outcome struct {
	ID            string
	State         State
	Trail         []State
	Engine        string
	Model         string
	PromptVersion string
	Request       diagnose.ClassificationRequest
	Result        diagnose.ClassificationResult
	Reply         string
	Err           error
	StartedAt     time.Time
	Duration      time.Duration
}

func (o *Outcome) enter(s State) { o.State = s; o.Trail = append(o.Trail, s) }

func (o *Outcome) fail(err error) *Outcome {
	o.Err = err
	o.enter(Failed)
	return o
}

// Recorder persists submission metadata. Optional.
type Recorder interface {
	Record(ctx context.Context, o *Outcome) error
}

type Pipeline struct {
	Engines       *diagnose.Engines
	Extractor     *diagnose.Extractor
	PromptVersion string
	Recorder      Recorder
}

// Run executes encode → request → extract for one upload. It never panics on
// bad input; every failure ends in the Failed state with a typed error.
func (p *Pipeline) Run(ctx context.Context, llmName string, image io.Reader) *Outcome {
	o := &Outcome{
		ID:            uuid.NewString(),
		PromptVersion: p.PromptVersion,
		StartedAt:     time.Now(),
	}
	o.enter(Idle)
	defer p.finish(ctx, o)

	o.enter(Encoding)
	req, err := diagnose.Encode(image)
	if err != nil {
		return o.fail(err)
	}
	o.Request = req
	return p.classify(ctx, llmName, o)
}

// RunEncoded is Run for callers that already hold a ClassificationRequest
// (JSON API with base64 body).
func (p *Pipeline) RunEncoded(ctx context.Context, llmName string, req diagnose.ClassificationRequest, encErr error) *Outcome {
	o := &Outcome{
		ID:            uuid.NewString(),
		PromptVersion: p.PromptVersion,
		StartedAt:     time.Now(),
	}
	o.enter(Idle)
	defer p.finish(ctx, o)

	o.enter(Encoding)
	if encErr != nil {
		return o.fail(encErr)
	}
	o.Request = req
	return p.classify(ctx, llmName, o)
}

func (p *Pipeline) classify(ctx context.Context, llmName string, o *Outcome) *Outcome {
	o.enter(Requesting)
	engine, err := p.Engines.GetEngine(llmName)
	if err != nil {
		return o.fail(&diagnose.TransportError{Engine: llmName, Err: err})
	}
	o.Engine, o.Model = engine.Name(), engine.GetModel()

	reply, err := engine.Classify(ctx, o.Request)
	if err != nil {
		return o.fail(err)
	}
	o.Reply = reply.Text

	o.enter(Extracting)
	res, err := p.Extractor.Extract(reply.Text)
	if err != nil {
		return o.fail(err)
	}
	o.Result = res
	o.enter(Presented)
	log.Printf("classify %s: %+v", o.ID, res)
	return o
}

func (p *Pipeline) finish(ctx context.Context, o *Outcome) {
	o.Duration = time.Since(o.StartedAt)
	if o.Err != nil {
		log.Printf("classify %s failed (%s, engine=%s): %v", o.ID, diagnose.ErrorKind(o.Err), o.Engine, o.Err)
	}
	if p.Recorder == nil {
		return
	}
	if err := p.Recorder.Record(context.WithoutCancel(ctx), o); err != nil {
		log.Printf("record submission %s: %v", o.ID, err)
	}
}

// ImageHash is the audit key for the uploaded bytes.
func (o *Outcome) ImageHash() string {
	if len(o.Request.ImageBytes) == 0 {
		return ""
	}
	return util.SHA256Hex(o.Request.ImageBytes)
}
