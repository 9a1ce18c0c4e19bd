package recommend

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pathlight/assessment-backend/internal/model"
)

const systemPrompt = "You write short, encouraging next-step advice for people who just " +
	"finished a self-assessment. Two to three sentences, plain language, no markdown."

// OpenAIProvider generates recommendations through the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Recommend(ctx context.Context, def *model.TestDefinition, res *model.ScoreResult) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(def, res)},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(def *model.TestDefinition, res *model.ScoreResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment: %s\n", def.Title)

	switch res.Mode {
	case model.ScoringModeCategoryAverage:
		fmt.Fprintf(&b, "Dominant trait: %s\n", res.Classification)
		for _, cat := range res.RankedCategories {
			fmt.Fprintf(&b, "%s: %d/100\n", cat, res.CategoryScores[cat].Score)
		}
	case model.ScoringModePercentCorrect:
		fmt.Fprintf(&b, "Level: %s\n", res.Classification)
		if res.PercentCorrect != nil {
			fmt.Fprintf(&b, "Score: %d%% (%d of %d correct)\n",
				*res.PercentCorrect, res.CorrectCount, res.TotalQuestions)
		}
	}

	b.WriteString("Suggest what this person should focus on next.")
	return b.String()
}
