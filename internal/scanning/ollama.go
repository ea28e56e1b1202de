package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Ollama is the local vision-model tier, backed by an Ollama runtime.
//
// The model handle is lazy: the first scan for a given model name verifies the
// runtime is reachable and the model is present, and that readiness is reused
// for the rest of the session. Concurrent first scans share one probe through
// a single-flight group.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client

	flight singleflight.Group
	mu     sync.Mutex
	ready  map[string]bool
}

// NewOllama creates an Ollama engine. Vision-capable models such as llava or
// qwen2-vl work best for receipts.
func NewOllama(baseURL string, modelName string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			// Local vision models can be slow, especially on first load.
			Timeout: 120 * time.Second,
		},
		ready: make(map[string]bool),
	}
}

// Source identifies this engine's tier.
func (o *Ollama) Source() Source {
	return SourceLocalAI
}

// SetModel switches the engine to a different model. The next scan probes the
// new model's readiness from scratch.
func (o *Ollama) SetModel(modelName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = modelName
}

func (o *Ollama) currentModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

// ensureModel probes the runtime for the model once per model name.
// An unreachable runtime or missing model is a capability failure, which lets
// the orchestrator fall back to the next tier.
func (o *Ollama) ensureModel(ctx context.Context, model string) error {
	o.mu.Lock()
	if o.ready[model] {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	_, err, _ := o.flight.Do(model, func() (interface{}, error) {
		body, err := json.Marshal(map[string]string{"model": model})
		if err != nil {
			return nil, fmt.Errorf("marshaling show request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/show", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating show request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: ollama runtime unreachable: %v", ErrCapabilityUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: model %q not available (status %d)", ErrCapabilityUnavailable, model, resp.StatusCode)
		}

		o.mu.Lock()
		o.ready[model] = true
		o.mu.Unlock()
		return nil, nil
	})
	return err
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Scan sends the receipt image to the local model and parses the structured
// reply.
func (o *Ollama) Scan(ctx context.Context, png []byte) (*Output, error) {
	model := o.currentModel()
	if err := o.ensureModel(ctx, model); err != nil {
		return nil, err
	}

	reqBody := ollamaChatRequest{
		Model:  model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading and extracting information from receipts and invoices.",
			},
			{
				Role:    "user",
				Content: visionPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(png)},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	fields, err := parseAIFields(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama response: %w", err)
	}

	return &Output{Kind: OutputFields, Fields: fields}, nil
}
