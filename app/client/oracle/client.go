package oracle

import (
	"net/http"
	"time"

	"hangoutd/app/config"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 30 * time.Second

// Client talks to the language oracle over an OpenAI-compatible API.
// Extraction, plan generation and conversational replies each carry
// their own model configuration.
type Client struct {
	extraction *openai.Client
	plan       *openai.Client
	reply      *openai.Client

	extractionModel string
	planModel       string
	replyModel      string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		extraction:      createClient(cfg.OpenAI.Extraction),
		plan:            createClient(cfg.OpenAI.Plan),
		reply:           createClient(cfg.OpenAI.Reply),
		extractionModel: cfg.OpenAI.Extraction.Model,
		planModel:       cfg.OpenAI.Plan.Model,
		replyModel:      cfg.OpenAI.Reply.Model,
	}, nil
}

func createClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: requestTimeout,
	}

	return openai.NewClientWithConfig(clientConfig)
}
