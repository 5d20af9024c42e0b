package chatsvc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/K-i-Q/credit-chat-companion/config"
	"github.com/K-i-Q/credit-chat-companion/model"
	walletsvc "github.com/K-i-Q/credit-chat-companion/service/wallet"
	"github.com/K-i-Q/credit-chat-companion/util/httpx"
)

var (
	ErrNotConfigured = errors.New("llm provider not configured")
	ErrNoMessages    = errors.New("messages are required")
	ErrNoCredits     = errors.New("insufficient balance")
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// defaultSystemPrompt is injected when the conversation carries no system
// turn.
var defaultSystemPrompt = strings.Join([]string{
	"Você é o Mentorix, um assistente de criação de sites com foco em vibe coding.",
	"Seu objetivo é guiar o usuário a usar ferramentas prontas e entregar prompts prontos para colar nessas ferramentas,",
	"não ensinar programação nem gerar HTML/CSS/JS bruto (a menos que o usuário peça explicitamente por código).",
	"Priorize ferramentas com geradores por prompt e fluxo simples.",
	"Faça perguntas rápidas quando faltar contexto (objetivo, público, estilo, conteúdo, prazo).",
	"Responda em PT-BR, de forma objetiva e prática.",
}, " ")

type Service interface {
	// Stream relays the conversation to the provider, emitting one event
	// per delta and a terminal done or error event. After a completed
	// exchange it debits one credit for the user; a DebitError reports a
	// completed stream whose charge failed.
	Stream(ctx context.Context, userID string, req model.ChatReq, emit func(model.ChatEvent) error) error
}

// DebitError marks a post-stream debit failure; the reply already reached
// the client when it occurs.
type DebitError struct{ Err error }

func (e *DebitError) Error() string { return "chat debit failed: " + e.Err.Error() }
func (e *DebitError) Unwrap() error { return e.Err }

type service struct {
	wallet  walletsvc.Service
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func New(wallet walletsvc.Service, cfg config.App) Service {
	return &service{
		wallet:  wallet,
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: defaultOpenAIBaseURL,
		client:  httpx.StreamingClient(),
	}
}

// NewWithBase points the relay at a non-default provider host (tests).
func NewWithBase(wallet walletsvc.Service, cfg config.App, baseURL string) Service {
	s := New(wallet, cfg).(*service)
	s.baseURL = baseURL
	return s
}

func (s *service) Stream(ctx context.Context, userID string, req model.ChatReq, emit func(model.ChatEvent) error) error {
	if s.apiKey == "" {
		return ErrNotConfigured
	}
	if len(req.Messages) == 0 {
		return ErrNoMessages
	}

	// Gate before the provider call; the debit itself happens only after
	// a completed stream, and may still lose to a concurrent spender.
	balance, _, err := s.wallet.Summary(ctx, userID)
	if err != nil {
		return err
	}
	if balance < 1 {
		return ErrNoCredits
	}

	messages := req.Messages
	if !hasSystemTurn(messages) {
		messages = append([]model.ChatMessage{{Role: "system", Content: defaultSystemPrompt}}, messages...)
	}
	mdl := req.Model
	if mdl == "" {
		mdl = s.model
	}

	body, err := json.Marshal(map[string]any{
		"model":    mdl,
		"messages": messages,
		"stream":   true,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return emit(model.ChatEvent{Type: "error", Message: "failed to reach provider"})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = "provider request failed"
		}
		return emit(model.ChatEvent{Type: "error", Message: msg})
	}

	completed, err := s.relay(resp, emit)
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	if _, err := s.wallet.Debit(ctx, userID, 1, model.Meta{"source": "chat"}); err != nil {
		return &DebitError{Err: err}
	}
	return nil
}

// relay copies provider SSE frames into client events. Returns whether the
// stream reached its terminal marker.
func (s *service) relay(resp *http.Response, emit func(model.ChatEvent) error) (bool, error) {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return true, emit(model.ChatEvent{Type: "done"})
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := emit(model.ChatEvent{Type: "delta", Content: chunk.Choices[0].Delta.Content}); err != nil {
				return false, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return false, emit(model.ChatEvent{Type: "error", Message: "stream interrupted"})
	}
	// Provider closed without [DONE]; treat the exchange as complete.
	return true, emit(model.ChatEvent{Type: "done"})
}

func hasSystemTurn(messages []model.ChatMessage) bool {
	for _, m := range messages {
		if m.Role == "system" {
			return true
		}
	}
	return false
}
