package classifier_test

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	"github.com/zhouzirui/z-tutor/backend/internal/llmtest"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
)

// oracle stands in for the language model: it answers with a keyword decision,
// padded with the whitespace and casing noise real models produce.
func oracle() *llmtest.ChatModel {
	return llmtest.New(func(input []*schema.Message) (string, error) {
		label := string(subject.Analyze(llmtest.LastUserText(input)).Category)
		return "  " + label + "\n", nil
	})
}

func TestClassifyWithModel(t *testing.T) {
	ctx := context.Background()
	svc, err := classifier.NewService(ctx, oracle(), classifier.ModeLLM, nil)
	require.NoError(t, err)

	cases := []struct {
		in   string
		want subject.Category
	}{
		{"hello there", subject.Default},
		{"my name is Shreyash", subject.Default},
		{"explain binary search trees", subject.DSA},
		{"explain OOP", subject.OOPS},
		{"combinatorics proof", subject.Maths},
	}
	for _, tc := range cases {
		result, err := svc.Classify(ctx, tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, result.Category, "input %q", tc.in)
		assert.False(t, result.Fallback, "input %q", tc.in)
	}
}

func TestClassifySendsOnlyCurrentInput(t *testing.T) {
	ctx := context.Background()
	chatModel := llmtest.Static("dsa")
	svc, err := classifier.NewService(ctx, chatModel, classifier.ModeLLM, nil)
	require.NoError(t, err)

	_, err = svc.Classify(ctx, "what is a heap")
	require.NoError(t, err)

	calls := chatModel.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, schema.System, calls[0][0].Role)
	assert.Contains(t, calls[0][0].Content, "Greetings")
	assert.Equal(t, "what is a heap", calls[0][1].Content)
}

func TestClassifyUnrecognizedOutputFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"biology", "", "I cannot answer that", "MATH"} {
		svc, err := classifier.NewService(ctx, llmtest.Static(raw), classifier.ModeLLM, nil)
		require.NoError(t, err)

		result, err := svc.Classify(ctx, "anything")
		require.NoError(t, err)
		assert.Equal(t, subject.Default, result.Category, "raw %q", raw)
		assert.True(t, result.Fallback, "raw %q", raw)
		assert.Equal(t, raw, result.Raw)
	}
}

func TestClassifyChattyOutputStillRoutes(t *testing.T) {
	ctx := context.Background()
	svc, err := classifier.NewService(ctx, llmtest.Static("Category: OOPS."), classifier.ModeLLM, nil)
	require.NoError(t, err)

	result, err := svc.Classify(ctx, "what is a vtable")
	require.NoError(t, err)
	assert.Equal(t, subject.OOPS, result.Category)
	assert.True(t, result.Fallback)
}

func TestClassifyPropagatesModelFailure(t *testing.T) {
	ctx := context.Background()
	svc, err := classifier.NewService(ctx, llmtest.Failing(llmtest.ErrBackendDown), classifier.ModeLLM, nil)
	require.NoError(t, err)

	_, err = svc.Classify(ctx, "explain OOP")
	assert.ErrorContains(t, err, llmtest.ErrBackendDown.Error())
}

func TestKeywordModeNeedsNoModel(t *testing.T) {
	ctx := context.Background()
	svc, err := classifier.NewService(ctx, nil, classifier.ModeKeyword, nil)
	require.NoError(t, err)

	result, err := svc.Classify(ctx, "explain OOP")
	require.NoError(t, err)
	assert.Equal(t, subject.OOPS, result.Category)
	assert.Equal(t, classifier.ModeKeyword, result.Mode)
}

func TestLLMModeRequiresModel(t *testing.T) {
	_, err := classifier.NewService(context.Background(), nil, classifier.ModeLLM, nil)
	assert.ErrorIs(t, err, classifier.ErrUnavailable)

	_, err = classifier.NewService(context.Background(), nil, classifier.Mode("dice"), nil)
	assert.Error(t, err)
}
