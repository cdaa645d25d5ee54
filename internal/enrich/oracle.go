package enrich

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/company-enrich/pkg/anthropic"
)

// Oracle answers a prompt with free-form text.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Default backend settings target a local Ollama install.
const (
	DefaultChatBaseURL = "http://localhost:11434/v1"
	DefaultModel       = "mistral"
	DefaultCommand     = "ollama"
)

// ChatConfig configures a ChatOracle.
type ChatConfig struct {
	BaseURL     string // OpenAI-compatible endpoint, e.g. "http://localhost:11434/v1"
	APIKey      string // optional for local endpoints
	Model       string
	Temperature float32
}

// ChatOracle calls an OpenAI-compatible chat completions endpoint.
type ChatOracle struct {
	client      *openai.Client
	model       string
	temperature float32
	log         *zap.Logger
}

// NewChatOracle creates a ChatOracle, defaulting to a local Ollama server.
func NewChatOracle(cfg ChatConfig) *ChatOracle {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &ChatOracle{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         zap.L().Named("oracle.chat"),
	}
}

// Complete implements Oracle.
func (o *ChatOracle) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("enrich: chat completion returned no choices")
	}

	o.log.Debug("completion",
		zap.String("model", o.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// AnthropicOracle calls the Anthropic Messages API.
type AnthropicOracle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicOracle creates an AnthropicOracle.
func NewAnthropicOracle(client anthropic.Client, model string, maxTokens int64) *AnthropicOracle {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicOracle{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Oracle.
func (o *AnthropicOracle) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: anthropic message")
	}
	resp.Usage.Log(o.model, "enrich")
	return resp.Text(), nil
}

// CommandOracle runs a local CLI, writing the prompt to stdin and reading
// the reply from stdout.
type CommandOracle struct {
	name string
	args []string
}

// NewCommandOracle creates a CommandOracle. An empty name runs
// "ollama run <model>".
func NewCommandOracle(name string, args ...string) *CommandOracle {
	if name == "" {
		name = DefaultCommand
		if len(args) == 0 {
			args = []string{"run", DefaultModel}
		}
	}
	return &CommandOracle{name: name, args: args}
}

// Complete implements Oracle. Output that is not valid UTF-8 is cleaned
// rather than rejected.
func (o *CommandOracle) Complete(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, o.name, o.args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "enrich: %s failed: %s", o.name, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(strings.ToValidUTF8(stdout.String(), "")), nil
}
