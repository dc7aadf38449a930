package feed

import (
	"context"
	"testing"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFeed_RetainedValueDeliveredOnSubscribe(t *testing.T) {
	ctx := context.Background()
	sut := NewMemoryFeed()

	require.NoError(t, sut.Publish(ctx, "C1", domain.ScanEvent{Barcode: "123", Count: 1, Timestamp: 10}))

	var got []domain.ScanEvent
	cancel, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) {
		got = append(got, event)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1)
	assert.Equal(t, "123", got[0].Barcode)
	assert.Equal(t, int64(10), got[0].Timestamp)
}

func TestMemoryFeed_PublishFansOut(t *testing.T) {
	ctx := context.Background()
	sut := NewMemoryFeed()

	var first, second []domain.ScanEvent
	cancel1, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) { first = append(first, event) })
	require.NoError(t, err)
	defer cancel1()
	cancel2, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) { second = append(second, event) })
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, sut.Publish(ctx, "C1", domain.ScanEvent{Barcode: "123", Count: 2, Timestamp: 20}))

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestMemoryFeed_CancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	sut := NewMemoryFeed()

	var got []domain.ScanEvent
	cancel, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) { got = append(got, event) })
	require.NoError(t, err)
	assert.Equal(t, 1, sut.SubscriberCount("C1"))

	cancel()
	assert.Equal(t, 0, sut.SubscriberCount("C1"))

	require.NoError(t, sut.Publish(ctx, "C1", domain.ScanEvent{Barcode: "123", Count: 1, Timestamp: 30}))
	assert.Empty(t, got)
}

func TestMemoryFeed_ClearDropsRetainedNotSubscriptions(t *testing.T) {
	ctx := context.Background()
	sut := NewMemoryFeed()

	require.NoError(t, sut.Publish(ctx, "C1", domain.ScanEvent{Barcode: "123", Count: 1, Timestamp: 40}))
	require.NoError(t, sut.Clear(ctx, "C1"))

	var got []domain.ScanEvent
	cancel, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) { got = append(got, event) })
	require.NoError(t, err)
	defer cancel()

	// Nothing retained anymore, but the subscription is live.
	assert.Empty(t, got)
	require.NoError(t, sut.Publish(ctx, "C1", domain.ScanEvent{Barcode: "456", Count: 1, Timestamp: 50}))
	require.Len(t, got, 1)
	assert.Equal(t, "456", got[0].Barcode)
}

func TestMemoryFeed_CodesAreIsolated(t *testing.T) {
	ctx := context.Background()
	sut := NewMemoryFeed()

	var got []domain.ScanEvent
	cancel, err := sut.Subscribe(ctx, "C1", func(event domain.ScanEvent) { got = append(got, event) })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, sut.Publish(ctx, "C2", domain.ScanEvent{Barcode: "123", Count: 1, Timestamp: 60}))
	assert.Empty(t, got)
}
