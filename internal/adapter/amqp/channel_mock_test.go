package amqp

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ channel = &channelMock{}

type channelMock struct {
	PublishWithContextFunc func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	CloseFunc              func() error

	calls struct {
		PublishWithContext []struct {
			Exchange string
			Key      string
			Msg      amqp.Publishing
		}
		Close []struct{}
	}
	lockPublishWithContext sync.RWMutex
	lockClose              sync.RWMutex
}

func (mock *channelMock) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if mock.PublishWithContextFunc == nil {
		panic("channelMock.PublishWithContextFunc: method is nil but channel.PublishWithContext was just called")
	}
	mock.lockPublishWithContext.Lock()
	mock.calls.PublishWithContext = append(mock.calls.PublishWithContext, struct {
		Exchange string
		Key      string
		Msg      amqp.Publishing
	}{Exchange: exchange, Key: key, Msg: msg})
	mock.lockPublishWithContext.Unlock()
	return mock.PublishWithContextFunc(ctx, exchange, key, mandatory, immediate, msg)
}

func (mock *channelMock) PublishWithContextCalls() []struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
} {
	mock.lockPublishWithContext.RLock()
	defer mock.lockPublishWithContext.RUnlock()
	return mock.calls.PublishWithContext
}

func (mock *channelMock) Close() error {
	if mock.CloseFunc == nil {
		panic("channelMock.CloseFunc: method is nil but channel.Close was just called")
	}
	mock.lockClose.Lock()
	mock.calls.Close = append(mock.calls.Close, struct{}{})
	mock.lockClose.Unlock()
	return mock.CloseFunc()
}

func (mock *channelMock) CloseCalls() []struct{} {
	mock.lockClose.RLock()
	defer mock.lockClose.RUnlock()
	return mock.calls.Close
}
