package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fxpilot/advisor/models"
)

func TestRunDeliversInPublishOrder(t *testing.T) {
	b := New()

	var got []int
	b.Subscribe(models.TopicMarketData, func(e models.Event) {
		got = append(got, e.Payload.(int))
	})

	for i := 0; i < 10; i++ {
		b.PublishNow(models.TopicMarketData, i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// a cancelled context still drains everything already queued
	b.Run(ctx)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(models.TopicDecisionReady, func(models.Event) { got = append(got, "first") })
	b.Subscribe(models.TopicDecisionReady, func(models.Event) { got = append(got, "second") })
	b.Subscribe(models.TopicDecisionReady, func(models.Event) { got = append(got, "third") })

	b.PublishNow(models.TopicDecisionReady, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPanickingHandlerDoesNotStopSiblings(t *testing.T) {
	b := New()

	delivered := 0
	b.Subscribe(models.TopicMarketData, func(models.Event) { panic("boom") })
	b.Subscribe(models.TopicMarketData, func(models.Event) { delivered++ })

	b.PublishNow(models.TopicMarketData, nil)
	b.PublishNow(models.TopicMarketData, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	assert.Equal(t, 2, delivered)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := New()

	delivered := 0
	b.Subscribe(models.TopicMarketData, func(models.Event) { delivered++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx)

	b.PublishNow(models.TopicMarketData, nil)
	b.Run(ctx)

	assert.Equal(t, 0, delivered)
}
