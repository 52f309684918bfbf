package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderValidatesConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.Error(t, err)

	_, err = NewProvider(&LLMConfig{Provider: "openai", Model: "gpt-4o-mini"})
	assert.Error(t, err, "cloud provider without a key is rejected")

	p, err := NewProvider(&LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k", BaseURL: "https://api.deepseek.com"})
	require.NoError(t, err)
	assert.Equal(t, defaultMaxTokens, p.config.MaxTokens)
	assert.Equal(t, defaultMaxRetries, p.config.MaxRetries)
	assert.Equal(t, defaultTimeout, p.config.Timeout)
}

func TestDoWithRetryStopsOnSuccess(t *testing.T) {
	p := &Provider{config: &LLMConfig{MaxRetries: 3}}

	calls := 0
	err := p.doWithRetry(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithRetryReturnsLastError(t *testing.T) {
	p := &Provider{config: &LLMConfig{MaxRetries: 1}}

	wantErr := errors.New("boom")
	err := p.doWithRetry(context.Background(), func() error { return wantErr })

	assert.Equal(t, wantErr, err)
}

func TestDoWithRetryHonorsCancellation(t *testing.T) {
	p := &Provider{config: &LLMConfig{MaxRetries: 3}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.doWithRetry(ctx, func() error {
		calls++
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation preempts the backoff wait")
}
