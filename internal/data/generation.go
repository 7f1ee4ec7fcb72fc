package data

import (
	"context"
	"errors"

	"UIForge/internal/biz"
	"UIForge/internal/conf"
	"UIForge/internal/model"
	"UIForge/pkg/llm"

	"github.com/go-kratos/kratos/v2/log"
)

// GenerationClient implements biz.GenerationClient on top of the llm package,
// translating its faults into the biz error taxonomy: transport failures,
// upstream timeouts and rate limits become transient (retriable) faults,
// missing credentials and request errors become fatal ones.
type GenerationClient struct {
	client *llm.Client
	logger *log.Helper
}

// NewGenerationClient creates the generation dependency client from configuration.
func NewGenerationClient(c *conf.LLM, logger log.Logger) (*GenerationClient, error) {
	helper := log.NewHelper(logger)

	client, err := llm.NewClient(llm.Config{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Model:    c.Model,
		ProxyURL: c.ProxyURL,
		Timeout:  c.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if !client.Configured() {
		helper.Warn("no LLM API key configured, generation requests will fail until one is provided")
	}

	return &GenerationClient{
		client: client,
		logger: helper,
	}, nil
}

// Generate produces an artifact for the prompt, classifying any fault.
func (g *GenerationClient) Generate(ctx context.Context, requestID, prompt string) (*model.GenerationResult, error) {
	g.logger.Infow("msg", "calling generation API", "request_id", requestID)

	res, err := g.client.GenerateComponent(ctx, requestID, prompt)
	if err != nil {
		return nil, classifyGenerationError(err)
	}

	return &model.GenerationResult{
		Code:        res.Code,
		Explanation: res.Explanation,
	}, nil
}

// Configured reports whether the dependency credentials are present.
func (g *GenerationClient) Configured() bool {
	return g.client.Configured()
}

// classifyGenerationError maps llm faults onto the biz taxonomy.
func classifyGenerationError(err error) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return &biz.FatalError{Err: err}
	}
	if llm.IsRetriable(err) {
		return &biz.TransientError{Err: err}
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		// Non-retriable API responses (bad request, invalid key) indicate a
		// configuration or programming problem, not upstream weather.
		return &biz.FatalError{Err: err}
	}

	return err
}
