package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopic(t *testing.T) {
	p := NewPublisher()

	require.NoError(t, p.NewTopic(ReloadConfig, time.Second))
	_, ok := p.topics[ReloadConfig]
	assert.True(t, ok, "topic should be created")

	assert.ErrorIs(t, p.NewTopic(ReloadConfig, time.Second), ErrTopicExists)
}

func TestRegisterSubscriber(t *testing.T) {
	p := NewPublisher()

	assert.ErrorIs(t, p.RegisterSubscriber("missing", func(any) {}), ErrTopicNotFound)

	require.NoError(t, p.NewTopic(ReloadConfig, time.Second))
	require.NoError(t, p.RegisterSubscriber(ReloadConfig, func(any) {}))
	assert.Len(t, p.topics[ReloadConfig].subscribers, 1)
}

func TestPublish(t *testing.T) {
	p := NewPublisher()
	message := "hello world"

	assert.ErrorIs(t, p.Publish("missing", message), ErrTopicNotFound)

	require.NoError(t, p.NewTopic(LoginStatusChanged, time.Second))

	received := make(map[int]string)
	var mu sync.Mutex
	for i := 1; i <= 2; i++ {
		require.NoError(t, p.RegisterSubscriber(LoginStatusChanged, func(param any) {
			mu.Lock()
			received[i] = param.(string)
			mu.Unlock()
		}))
	}

	require.NoError(t, p.Publish(LoginStatusChanged, message))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, message, received[1])
	assert.Equal(t, message, received[2])
}

func TestPublishTimeout(t *testing.T) {
	p := NewPublisher()
	require.NoError(t, p.NewTopic(ReloadConfig, 20*time.Millisecond))

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, p.RegisterSubscriber(ReloadConfig, func(any) { <-release }))

	assert.ErrorIs(t, p.Publish(ReloadConfig, nil), ErrPublishTimeout)
}

func TestPublishRecoversPanickingSubscriber(t *testing.T) {
	p := NewPublisher()
	require.NoError(t, p.NewTopic(ReloadConfig, 0))

	called := false
	require.NoError(t, p.RegisterSubscriber(ReloadConfig, func(any) { panic("bad subscriber") }))
	require.NoError(t, p.RegisterSubscriber(ReloadConfig, func(any) { called = true }))

	assert.NoError(t, p.Publish(ReloadConfig, nil))
	assert.True(t, called)
}

func TestPostKeepsOrderAndDoesNotWait(t *testing.T) {
	p := NewPublisher()
	require.NoError(t, p.NewTopic(LoginStatusChanged, time.Second))
	assert.ErrorIs(t, p.Post("missing", 1), ErrTopicNotFound)

	release := make(chan struct{})
	var mu sync.Mutex
	var got []int
	require.NoError(t, p.RegisterSubscriber(LoginStatusChanged, func(param any) {
		<-release
		mu.Lock()
		got = append(got, param.(int))
		mu.Unlock()
	}))

	start := time.Now()
	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Post(LoginStatusChanged, i))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "post returns before subscribers run")
	close(release)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}
