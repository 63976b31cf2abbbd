package app

import (
	"context"
	"strings"

	"buildwise/api/internal/aiassist"
	"buildwise/api/internal/home"
)

type AnalyzeInput struct {
	URL    string   `json:"url" validate:"omitempty,url"`
	URLs   []string `json:"urls" validate:"omitempty,dive,url"`
	Prompt string   `json:"prompt" validate:"required"`
}

type AnalyzeFilesInput struct {
	URLs   []string `json:"urls" validate:"required,min=1,dive,url"`
	Prompt string   `json:"prompt" validate:"required"`
	Model  string   `json:"model"`
}

type AnalyzeTradeInput struct {
	HomeID         string   `json:"homeId" validate:"required"`
	TradeID        string   `json:"tradeId" validate:"required"`
	TaskID         string   `json:"taskId"`
	URLs           []string `json:"urls" validate:"omitempty,dive,url"`
	Prompt         string   `json:"prompt"`
	ContainsImages bool     `json:"containsImages"`
}

type AnalyzeArchitectureInput struct {
	URLs   []string `json:"urls" validate:"required,min=1,dive,url"`
	HomeID string   `json:"homeId"`
}

// ArchitectureResult extends the analysis with the parsed characteristics.
type ArchitectureResult struct {
	aiassist.Result
	Architecture *aiassist.Architecture `json:"architecture"`
	ParseError   string                 `json:"parseError,omitempty"`
}

// aiReady is checked before any URL is fetched.
func (s *Service) aiReady() error {
	if s.ai == nil || !s.ai.Configured() {
		return aiassist.ErrNotConfigured
	}
	return nil
}

func (s *Service) Analyze(ctx context.Context, input AnalyzeInput, actor home.Actor) (aiassist.Result, error) {
	if err := validateInput(input); err != nil {
		return aiassist.Result{}, err
	}
	if (input.URL == "") == (len(input.URLs) == 0) {
		return aiassist.Result{}, invalid("Validation failed", []FieldError{{Field: "url", Tag: "xor", Message: "exactly one of url or urls is required"}})
	}
	if err := s.aiReady(); err != nil {
		return aiassist.Result{}, err
	}
	req := aiassist.Request{
		UserEmail: actor.Email,
		Prompt:    input.Prompt,
		MaxChars:  aiassist.LimitGeneral,
	}
	if len(input.URLs) > 0 {
		req.Mode = aiassist.ModeURLs
		req.URLs = input.URLs
	} else {
		req.Mode = aiassist.ModeURL
		req.URL = input.URL
	}
	res, err := s.ai.Analyze(ctx, req)
	if err != nil {
		return aiassist.Result{}, upstreamError(err)
	}
	return res, nil
}

func (s *Service) AnalyzeFiles(ctx context.Context, input AnalyzeFilesInput, actor home.Actor) (aiassist.Result, error) {
	if err := s.aiReady(); err != nil {
		return aiassist.Result{}, err
	}
	if err := validateInput(input); err != nil {
		return aiassist.Result{}, err
	}
	res, err := s.ai.Analyze(ctx, aiassist.Request{
		Mode:        aiassist.ModeFiles,
		UserEmail:   actor.Email,
		Prompt:      input.Prompt,
		URLs:        input.URLs,
		Model:       strings.TrimSpace(input.Model),
		SplitImages: true,
		MaxChars:    aiassist.LimitGeneral,
	})
	if err != nil {
		return aiassist.Result{}, upstreamError(err)
	}
	return res, nil
}

// AnalyzeTrade defaults its documents to the trade's attachments and pinned
// home documents, and its prompt to guidance built from the trade.
func (s *Service) AnalyzeTrade(ctx context.Context, input AnalyzeTradeInput, actor home.Actor) (aiassist.Result, error) {
	if err := s.aiReady(); err != nil {
		return aiassist.Result{}, err
	}
	if err := validateInput(input); err != nil {
		return aiassist.Result{}, err
	}
	h, err := s.GetHome(ctx, input.HomeID)
	if err != nil {
		return aiassist.Result{}, err
	}
	idx := h.TradeIndex(input.TradeID)
	if idx < 0 {
		return aiassist.Result{}, home.ErrTradeNotFound
	}
	trade := h.Trades[idx]
	var task *home.Task
	if input.TaskID != "" {
		if _, task = h.FindTask(input.TradeID, input.TaskID); task == nil {
			return aiassist.Result{}, home.ErrTaskNotFound
		}
	}

	urls := input.URLs
	if len(urls) == 0 {
		urls = aiassist.TradeDocumentURLs(h, input.TradeID, input.TaskID)
	}
	if len(urls) == 0 {
		return aiassist.Result{}, invalid("No documents to analyze for this trade", nil)
	}
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		prompt = aiassist.TradeGuidance(trade, task)
	}

	res, err := s.ai.Analyze(ctx, aiassist.Request{
		Mode:        aiassist.ModeTrade,
		UserEmail:   actor.Email,
		Prompt:      prompt,
		URLs:        urls,
		SplitImages: input.ContainsImages,
		MaxChars:    aiassist.LimitDocuments,
	})
	if err != nil {
		return aiassist.Result{}, upstreamError(err)
	}
	return res, nil
}

func (s *Service) AnalyzeArchitecture(ctx context.Context, input AnalyzeArchitectureInput, actor home.Actor) (ArchitectureResult, error) {
	if err := s.aiReady(); err != nil {
		return ArchitectureResult{}, err
	}
	if err := validateInput(input); err != nil {
		return ArchitectureResult{}, err
	}
	if input.HomeID != "" {
		if _, err := s.GetHome(ctx, input.HomeID); err != nil {
			return ArchitectureResult{}, err
		}
	}
	res, arch, parseErr, err := s.ai.AnalyzeArchitecture(ctx, actor.Email, input.URLs)
	if err != nil {
		return ArchitectureResult{}, upstreamError(err)
	}
	return ArchitectureResult{Result: res, Architecture: arch, ParseError: parseErr}, nil
}
