package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReturnsEventAsMsg(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(RefreshedEvent, "doc-1")

	msg := ListenCmd(ctx, ch)()
	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "doc-1", event.Payload)
}

func TestListenCmd_ClosedChannelYieldsNil(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)
	require.Nil(t, ListenCmd(context.Background(), ch)())
}

func TestListenCmd_CancelledContextYieldsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan Event[string])
	require.Nil(t, ListenCmd(ctx, ch)())
}

func TestContinuousListener_ReceivesInOrder(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener(ctx, broker)
	broker.Publish(RefreshedEvent, 1)
	broker.Publish(RefreshedEvent, 2)

	first := listener.Listen()().(Event[int])
	second := listener.Listen()().(Event[int])
	require.Equal(t, 1, first.Payload)
	require.Equal(t, RefreshedEvent, first.Type)
	require.Equal(t, 2, second.Payload)
	require.Equal(t, RefreshedEvent, second.Type)
}
