// Package event is a small in-process publish/subscribe hub used for events
// that happen outside the frame pump, such as settings reloads.
package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linchenxuan/eosemu/log"
)

var (
	ErrTopicExists    = errors.New("topic already exists")
	ErrTopicNotFound  = errors.New("topic not found")
	ErrPublishTimeout = errors.New("publish timed out")
)

// Publisher includes multiple topics.
type Publisher struct {
	lock   sync.RWMutex
	topics map[string]*Topic

	postLock sync.Mutex
	posted   []posted
	draining bool
}

type posted struct {
	topic string
	value any
}

// NewPublisher creates a Publisher with no topics.
func NewPublisher() *Publisher {
	return &Publisher{topics: make(map[string]*Topic)}
}

// NewTopic must be called before anyone can subscribe to topicName.
// A zero timeout makes Publish wait for every subscriber.
func (p *Publisher) NewTopic(topicName string, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.topics[topicName]; ok {
		return fmt.Errorf("%w: %s", ErrTopicExists, topicName)
	}
	p.topics[topicName] = &Topic{timeout: timeout}
	return nil
}

// RegisterSubscriber registers a subscriber.
func (p *Publisher) RegisterSubscriber(topicName string, fn Subscriber) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topicName)
	}

	topic.subscribers = append(topic.subscribers, fn)
	log.Debug().Str("topic", topicName).Int("num", len(topic.subscribers)).Msg("add subscriber")
	return nil
}

// Publish hands i to every subscriber and waits for them, up to the topic
// timeout.
func (p *Publisher) Publish(topicName string, i any) error {
	p.lock.RLock()
	topic, ok := p.topics[topicName]
	var subs []Subscriber
	var timeout time.Duration
	if ok {
		subs = append(subs, topic.subscribers...)
		timeout = topic.timeout
	}
	p.lock.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topicName)
	}

	log.Debug().Str("topic", topicName).Int("subscribers", len(subs)).Msg("publish event")

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("topic", topicName).Interface("panic", r).Msg("subscriber panicked")
				}
			}()
			sub(i)
		}()
	}

	if timeout <= 0 {
		wg.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		log.Warn().Str("topic", topicName).Dur("timeout", timeout).Msg("publish timed out")
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topicName)
	}
}

// Post queues i for topicName and returns at once. Posted values are
// published one at a time, in the order they were posted, from a goroutine
// that lives while the queue is not empty. Post never waits for
// subscribers, so it may be called with the global lock held.
func (p *Publisher) Post(topicName string, i any) error {
	p.lock.RLock()
	_, ok := p.topics[topicName]
	p.lock.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topicName)
	}

	p.postLock.Lock()
	p.posted = append(p.posted, posted{topic: topicName, value: i})
	start := !p.draining
	p.draining = true
	p.postLock.Unlock()

	if start {
		go p.drain()
	}
	return nil
}

func (p *Publisher) drain() {
	for {
		p.postLock.Lock()
		if len(p.posted) == 0 {
			p.draining = false
			p.postLock.Unlock()
			return
		}
		next := p.posted[0]
		p.posted[0] = posted{}
		p.posted = p.posted[1:]
		p.postLock.Unlock()

		if err := p.Publish(next.topic, next.value); err != nil {
			log.Debug().Err(err).Str("topic", next.topic).Msg("posted event")
		}
	}
}
