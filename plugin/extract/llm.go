package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	inverrors "github.com/hrygo/shopfloor/server/internal/errors"
	"github.com/hrygo/shopfloor/store"
)

// LLMConfig configures an OpenAI-compatible chat endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestsPerSecond throttles calls to the provider. Zero means 1.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// LLMExtractor asks a chat model to map text onto Material fields and
// falls back to line heuristics when the model is unavailable or replies
// with something unusable.
type LLMExtractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	reader  *Reader
}

// NewLLMExtractor returns an extractor. With an empty API key it only
// runs the heuristic fallback.
func NewLLMExtractor(cfg LLMConfig, reader *Reader) *LLMExtractor {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}

	e := &LLMExtractor{
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		reader:  reader,
	}
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		e.client = openai.NewClientWithConfig(clientConfig)
	}
	return e
}

// ExtractMaterial reads the source and maps it onto Material fields.
// Failing to read the source is an EXTRACTION error; a failing model is not.
func (e *LLMExtractor) ExtractMaterial(ctx context.Context, src Source) (*store.Material, error) {
	text, err := e.reader.Text(ctx, src)
	if err != nil {
		return nil, inverrors.Wrap(err, inverrors.ErrCodeExtraction, "could not read "+displayName(src))
	}
	if e.client == nil {
		return Fallback(text), nil
	}

	fields, err := e.complete(ctx, text)
	if err != nil {
		slog.Warn("LLM extraction failed, using fallback", "error", err, "source", displayName(src))
		return Fallback(text), nil
	}
	return fields.Material(), nil
}

func (e *LLMExtractor) complete(ctx context.Context, text string) (Fields, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return Fields{}, errors.Wrap(err, "rate limiter")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: materialSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "```\n" + text + "\n```"},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Fields{}, errors.Wrap(err, "LLM request failed")
	}
	if len(resp.Choices) == 0 {
		return Fields{}, errors.New("empty response from LLM")
	}

	fields, err := ParseFields(resp.Choices[0].Message.Content)
	if err != nil {
		return Fields{}, err
	}
	slog.Debug("LLM extraction completed",
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)
	return fields, nil
}

func displayName(src Source) string {
	if src.Filename != "" {
		return src.Filename
	}
	return "text"
}

const materialSystemPrompt = `Extraes información para un formulario de inventario de materiales para fabricación de calzado.
Devuelve ÚNICAMENTE un objeto JSON con estos campos exactos (camelCase):
- nombre: nombre del material
- referencia: referencia o código interno
- unidades: unidad de medida (metros, kg, litros, unidades...)
- stock: cantidad disponible (solo números)
- stockMinimo: cantidad mínima para alerta (solo números)
- precio: precio por unidad (solo números)
- categoria: Cuero, Textil, Hilo, Adhesivo, Suela, Hebilla, Ornamento, Plantilla u Otros
- proveedor: nombre del proveedor
- descripcion: descripción detallada
- fechaAdquisicion: fecha de compra (YYYY-MM-DD)
- ubicacion: ubicación física en almacén
Si un dato no aparece, usa una cadena vacía o 0. Sin texto antes ni después del JSON.`
