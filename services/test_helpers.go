package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamraffle/go-raffle/models"
)

type FakeConnectionHub struct {
	mu         sync.Mutex
	broadcasts map[string][]models.BroadcastEvent
}

func NewFakeConnectionHub() *FakeConnectionHub {
	return &FakeConnectionHub{broadcasts: make(map[string][]models.BroadcastEvent)}
}

func (f *FakeConnectionHub) Register(channelID string) *models.LiveConnection {
	return &models.LiveConnection{
		Token:       uuid.New(),
		ChannelID:   channelID,
		Events:      make(chan []byte, DefaultEventBuffer),
		ConnectedAt: time.Now().UTC(),
	}
}

func (f *FakeConnectionHub) Unregister(conn *models.LiveConnection) {}

func (f *FakeConnectionHub) Broadcast(ctx context.Context, channelID string, event models.BroadcastEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts[channelID] = append(f.broadcasts[channelID], event)
	return 1
}

func (f *FakeConnectionHub) Shutdown(ctx context.Context) {}

func (f *FakeConnectionHub) getBroadcasts(channelID string) []models.BroadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.BroadcastEvent(nil), f.broadcasts[channelID]...)
}

type FakeNotifier struct {
	mu         sync.Mutex
	shouldFail bool
	alerts     []string
}

func (f *FakeNotifier) SendAlert(title, desc, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shouldFail {
		return errors.New("TestError")
	}
	f.alerts = append(f.alerts, content)
	return nil
}

func (f *FakeNotifier) SendInfo(title, desc, content string) error {
	return f.SendAlert(title, desc, content)
}

func (f *FakeNotifier) getAlerts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.alerts...)
}

type FakeMetricService struct {
	mu     sync.Mutex
	counts map[models.MetricName]int
}

func NewFakeMetricService() *FakeMetricService {
	return &FakeMetricService{counts: make(map[models.MetricName]int)}
}

func (f *FakeMetricService) Count(ctx context.Context, name models.MetricName, val int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name] += val
	return nil
}

func (f *FakeMetricService) Distribution(ctx context.Context, name models.MetricName, val int) error {
	return nil
}

func (f *FakeMetricService) Shutdown(ctx context.Context) {}

func (f *FakeMetricService) getCount(name models.MetricName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}
