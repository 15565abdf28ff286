package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"consult-ai-backend/internal/consultation"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

const (
	reasonerModel = "deepseek-reasoner"
	chatModel     = "deepseek-chat"
)

// Completion is the gateway output. Degraded marks canned demo content
// substituted for a failed or unconfigured remote call.
type Completion struct {
	Text     string
	Degraded bool
}

// Gateway wraps the remote text-completion API. Complete never fails: any
// remote error is absorbed into a canned response chosen from the prompt.
type Gateway interface {
	Complete(ctx context.Context, prompt string, useReasoner bool) Completion
	Status() consultation.ModelStatus
}

type deepSeekGateway struct {
	baseURL     string
	reasonerKey string
	chatKey     string
	httpClient  *http.Client

	mu           sync.Mutex
	reasonerDown bool
	chatDown     bool
}

func NewDeepSeekGateway(reasonerKey, chatKey, baseURL string) Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &deepSeekGateway{
		baseURL:     baseURL,
		reasonerKey: reasonerKey,
		chatKey:     chatKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *deepSeekGateway) Complete(ctx context.Context, prompt string, useReasoner bool) Completion {
	model, apiKey := chatModel, g.chatKey
	if useReasoner {
		model, apiKey = reasonerModel, g.reasonerKey
	}

	if apiKey == "" {
		return Completion{Text: cannedResponse(prompt), Degraded: true}
	}

	text, err := g.call(ctx, model, apiKey, prompt)
	g.markDown(useReasoner, err != nil)
	if err != nil {
		log.Printf("model call failed (%s), serving canned response: %v", model, err)
		return Completion{Text: cannedResponse(prompt), Degraded: true}
	}
	return Completion{Text: text}
}

func (g *deepSeekGateway) call(ctx context.Context, model, apiKey, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model API error: %s - %s", resp.Status, string(body))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("model API returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

func (g *deepSeekGateway) markDown(reasoner, down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if reasoner {
		g.reasonerDown = down
	} else {
		g.chatDown = down
	}
}

func (g *deepSeekGateway) Status() consultation.ModelStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := func(key string, down bool) string {
		if key == "" {
			return consultation.StatusDemoMode
		}
		if down {
			return consultation.StatusDisconnected
		}
		return consultation.StatusConnected
	}
	return consultation.ModelStatus{
		Reasoner: status(g.reasonerKey, g.reasonerDown),
		Chat:     status(g.chatKey, g.chatDown),
	}
}
