// Package aiassist builds document context from URLs and asks a completion
// model to analyze it.
package aiassist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildwise/api/internal/metrics"
	"buildwise/api/internal/store"
)

var (
	ErrNotConfigured      = errors.New("missing OPENAI_API_KEY")
	ErrUnsupportedContent = errors.New("unsupported or empty content at URL(s)")
)

const (
	MaxImages      = 10
	LimitGeneral   = 200_000
	LimitDocuments = 150_000
)

const (
	ModeURL          = "url"
	ModeURLs         = "urls"
	ModeFiles        = "files"
	ModeTrade        = "trade"
	ModeArchitecture = "architecture"
)

const (
	systemText   = "You are Buildwise AI. Analyze construction-related documents and provide clear, actionable, and accurate insights."
	systemVision = "You are Buildwise AI. Analyze construction-related documents and images and provide clear, actionable, and accurate insights."
	systemTail   = " If there are uncertainties or missing data, call them out explicitly. Keep answers concise and structured."
)

type Request struct {
	Mode      string
	UserEmail string
	Prompt    string
	// URL is the single-document form; its text is sent without a header.
	URL         string
	URLs        []string
	Model       string
	SplitImages bool
	MaxChars    int
}

type Result struct {
	Result string `json:"result"`
	Model  string `json:"model"`
	Usage  *Usage `json:"usage,omitempty"`
}

type Service struct {
	completer Completer
	fetcher   *Fetcher
	sink      *LogSink
	now       func() time.Time
}

// NewService accepts a nil completer; every call then fails with ErrNotConfigured.
func NewService(completer Completer, fetcher *Fetcher, sink *LogSink) *Service {
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	return &Service{completer: completer, fetcher: fetcher, sink: sink, now: time.Now}
}

func (s *Service) Configured() bool {
	return s != nil && s.completer != nil
}

func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	if !s.Configured() {
		return Result{}, ErrNotConfigured
	}
	limit := req.MaxChars
	if limit <= 0 {
		limit = LimitGeneral
	}

	var bundle Bundle
	logURLs := req.URLs
	if req.URL != "" && len(req.URLs) == 0 {
		text, err := s.fetcher.ExtractText(ctx, req.URL)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve %s: %w", req.URL, err)
		}
		bundle.Text = text
		logURLs = []string{req.URL}
	} else {
		bundle = s.fetcher.Collect(ctx, req.URLs, limit, req.SplitImages)
	}
	if bundle.Empty() {
		return Result{}, ErrUnsupportedContent
	}

	images := bundle.Images
	if len(images) > MaxImages {
		images = images[:MaxImages]
	}
	model := req.Model
	if model == "" {
		model = ModelText
		if len(images) > 0 {
			model = ModelVision
		}
	}
	system := systemText + systemTail
	if req.SplitImages {
		system = systemVision + systemTail
	}
	parts := []string{"User prompt: " + req.Prompt}
	if strings.TrimSpace(bundle.Text) != "" {
		parts = append(parts, "Relevant document text:\n"+truncateChars(bundle.Text, limit))
	}

	completion, err := s.completer.Complete(ctx, CompletionRequest{
		Model:  model,
		System: system,
		Parts:  parts,
		Images: images,
	})
	if err != nil {
		metrics.RecordAIRequest(req.Mode, model, false, 0, 0)
		return Result{}, err
	}
	if completion.Model == "" {
		completion.Model = model
	}
	metrics.RecordAIRequest(req.Mode, completion.Model, true, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	s.sink.Enqueue(store.AILog{
		ID:           uuid.NewString(),
		UserEmail:    req.UserEmail,
		Mode:         req.Mode,
		Prompt:       req.Prompt,
		URLs:         store.JSONB[[]string]{V: logURLs},
		Model:        completion.Model,
		ResponseText: completion.Text,
		Usage: store.JSONB[store.AIUsage]{V: store.AIUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}},
		CreatedAt: s.now().UTC(),
	})

	usage := completion.Usage
	return Result{Result: completion.Text, Model: completion.Model, Usage: &usage}, nil
}

// AnalyzeArchitecture runs the extraction prompt and parses the answer.
// A parse failure is reported in the returned error string, not as an error.
func (s *Service) AnalyzeArchitecture(ctx context.Context, userEmail string, urls []string) (Result, *Architecture, string, error) {
	res, err := s.Analyze(ctx, Request{
		Mode:        ModeArchitecture,
		UserEmail:   userEmail,
		Prompt:      ArchitecturePrompt,
		URLs:        urls,
		SplitImages: true,
		MaxChars:    LimitDocuments,
	})
	if err != nil {
		return Result{}, nil, "", err
	}
	arch, perr := ParseArchitecture(res.Result)
	if perr != nil {
		return res, nil, perr.Error(), nil
	}
	return res, &arch, "", nil
}
