// Package llm wraps the Gemini API for topic classification, summarization,
// embeddings and grounded answer generation.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"newslens/internal/core"
)

const (
	// DefaultModel is the default Gemini model for text generation.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is the default model for generating embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the output dimension for embeddings (Matryoshka).
	DefaultEmbeddingDimensions = int32(768)

	// promptTextLimit caps how much article text goes into a prompt to avoid
	// token overload on long articles.
	promptTextLimit = 1500
	// embedTextLimit caps embedding input, conservative for gemini-embedding-001.
	embedTextLimit = 8000

	classifyPromptTemplate = `You are an expert journalist. Given the following news article content, classify it into one of: %s.

Article:
"%s"

Respond with only the category name.`

	summarizePromptTemplate = `You are a summarization assistant. Summarize the following news article clearly in 2-3 sentences. Write only the summary, no lead-in or meta-commentary.

Article:
"%s"

Summary:`

	answerPromptTemplate = `You are a news assistant. Answer the user's question using ONLY the news summaries below. If the summaries do not contain the answer, say so plainly instead of guessing.

Summaries:
%s
%s
Question: %s
Answer:`

	// ungroundedAnswer is returned without calling the model when the
	// context window carries no retrieved items.
	ungroundedAnswer = "I couldn't find any relevant coverage in today's news to answer that."
)

// Client is a Gemini-backed client for all model interactions in the
// pipeline: classification, summarization, embedding and answering.
type Client struct {
	apiKey         string
	modelName      string
	embeddingModel string
	gClient        *genai.Client
}

// NewClient creates a new LLM client. The API key is taken from
// GEMINI_API_KEY (or alternatives), falling back to ai.gemini.api_key in the
// config.
func NewClient(ctx context.Context, modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			if apiKey = os.Getenv("GOOGLE_AI_API_KEY"); apiKey == "" {
				apiKey = viper.GetString("ai.gemini.api_key")
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required; set GEMINI_API_KEY or ai.gemini.api_key in the config file")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}
	embeddingModel := viper.GetString("ai.gemini.embedding_model")
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:         apiKey,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		gClient:        gClient,
	}, nil
}

// generateContent wraps a single-turn GenerateContent call.
func (c *Client) generateContent(ctx context.Context, prompt string, temperature float32) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", &core.UpstreamUnavailableError{Op: "gemini generate", Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.modelName)
	}
	return strings.TrimSpace(text), nil
}

// ClassifyTopic assigns one of the valid topics to an article, returning
// "unknown" when the model answers outside the set.
func (c *Client) ClassifyTopic(ctx context.Context, article core.Article, validTopics []string) (string, error) {
	prompt := fmt.Sprintf(classifyPromptTemplate,
		strings.Join(validTopics, ", "),
		truncateText(article.Title+"\n"+article.BodyText, promptTextLimit))

	answer, err := c.generateContent(ctx, prompt, 0.0)
	if err != nil {
		return "", err
	}

	topic := strings.ToLower(strings.TrimSpace(answer))
	for _, valid := range validTopics {
		if topic == valid {
			return topic, nil
		}
	}
	return "unknown", nil
}

// Summarize produces a 2-3 sentence summary of the article body.
func (c *Client) Summarize(ctx context.Context, article core.Article) (string, error) {
	prompt := fmt.Sprintf(summarizePromptTemplate,
		truncateText(article.BodyText, promptTextLimit))

	summary, err := c.generateContent(ctx, prompt, temperature())
	if err != nil {
		return "", err
	}
	return CleanSummary(summary), nil
}

// Embed generates a fixed-length embedding for the given text. Identical
// input yields identical vectors for a fixed model version.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: truncateText(text, embedTextLimit)}},
		Role:  "user",
	}}

	dims := DefaultEmbeddingDimensions
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	resp, err := c.gClient.Models.EmbedContent(ctx, c.embeddingModel, contents, config)
	if err != nil {
		return nil, &core.UpstreamUnavailableError{Op: "gemini embed", Err: err}
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from API")
	}

	values := resp.Embeddings[0].Values
	embedding := make([]float64, len(values))
	for i, val := range values {
		embedding[i] = float64(val)
	}
	return embedding, nil
}

// EmbedArticle embeds an article, combining title and body for a better
// representation.
func (c *Client) EmbedArticle(ctx context.Context, article core.Article) ([]float64, error) {
	return c.Embed(ctx, article.Title+"\n\n"+article.BodyText)
}

// Answer generates an answer to the question from the context window. An
// ungrounded window short-circuits to a decline without calling the model.
func (c *Client) Answer(ctx context.Context, window core.ContextWindow, question string) (string, error) {
	if !window.Grounded {
		return ungroundedAnswer, nil
	}

	var summaries strings.Builder
	for _, item := range window.Items {
		fmt.Fprintf(&summaries, "- %s\n", item.Summary)
	}

	var history string
	if len(window.History) > 0 {
		var b strings.Builder
		b.WriteString("\nEarlier in this conversation:\n")
		for _, turn := range window.History {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
		}
		history = b.String()
	}

	prompt := fmt.Sprintf(answerPromptTemplate, summaries.String(), history, question)
	return c.generateContent(ctx, prompt, temperature())
}

// Close releases the client. The genai SDK holds no persistent connection,
// so this is currently a no-op kept for symmetry with other resources.
func (c *Client) Close() {}

// CleanSummary strips the boilerplate lead-in some models prepend despite
// the prompt asking for the summary only.
func CleanSummary(summary string) string {
	cleaned := strings.TrimSpace(summary)
	for _, prefix := range []string{
		"Here is a 2-3 sentence summary of the news article:",
		"Here is a summary of the article:",
		"Here's a summary:",
	} {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
	}
	return cleaned
}

func temperature() float32 {
	return float32(viper.GetFloat64("ai.gemini.temperature"))
}

func truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength]
}
