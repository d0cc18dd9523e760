package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
)

type MockLeadLister struct{ mock.Mock }

func (m *MockLeadLister) ListLeads(filters map[string]interface{}) ([]db.Lead, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.Lead), args.Error(1)
}

type MockSettings struct{ mock.Mock }

func (m *MockSettings) ListSLAConfigs() (map[string]sla.Config, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]sla.Config), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, n db.SLANotification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

var workerNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func workerLeads() []db.Lead {
	ts := func(d time.Duration) string { return workerNow.Add(-d).Format(time.RFC3339) }
	return []db.Lead{
		// 30 min unacknowledged: danger under defaults, fine for u2's 45 min
		{ID: "1", Name: "An", Status: "NEW", OwnerID: "u1", CreatedAt: ts(30 * time.Minute)},
		{ID: "2", Name: "Bình", Status: "NEW", OwnerID: "u2", CreatedAt: ts(30 * time.Minute)},
		// slow interaction is only a warning
		{ID: "3", Name: "Chi", Status: "CONTACTED", OwnerID: "u1", CreatedAt: ts(3 * time.Hour)},
		// appointment two hours late
		{ID: "4", Name: "Dung", Status: "CONTACTED", OwnerID: "u2", CreatedAt: ts(time.Hour),
			Activities: []db.Activity{{ID: "a1", Type: db.ActivityTypeActivity, Datetime: ts(2 * time.Hour)}}},
	}
}

func newTestWorker(leads *MockLeadLister, settings *MockSettings, notifier *MockNotifier) *SLAWorker {
	w := NewSLAWorker(leads, settings, sla.DefaultConfig(), notifier, time.Minute)
	w.Now = sla.FixedClock(workerNow)
	return w
}

func TestSLAWorker_RunOnce(t *testing.T) {
	leads := new(MockLeadLister)
	leads.On("ListLeads", mock.Anything).Return(workerLeads(), nil)

	settings := new(MockSettings)
	settings.On("ListSLAConfigs").Return(map[string]sla.Config{
		"u2": {AckTimeMinutes: 45, FirstActionTimeMinutes: 60},
	}, nil)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n db.SLANotification) bool {
		return n.LeadID == "1" && n.Type == "not_acknowledged" && n.OwnerID == "u1"
	})).Return(true, nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n db.SLANotification) bool {
		return n.LeadID == "4" && n.Type == "overdue_appointment" && n.ActivityID == "a1"
	})).Return(false, nil).Once()

	sent, err := newTestWorker(leads, settings, notifier).RunOnce(context.Background())
	require.NoError(t, err)

	// Lead 4 was a duplicate
	assert.Equal(t, 1, sent)
	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestSLAWorker_RunOnce_SettingsFailureUsesDefaults(t *testing.T) {
	leads := new(MockLeadLister)
	leads.On("ListLeads", mock.Anything).Return(workerLeads()[:2], nil)

	settings := new(MockSettings)
	settings.On("ListSLAConfigs").Return(nil, errors.New("db down"))

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(true, nil)

	sent, err := newTestWorker(leads, settings, notifier).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestSLAWorker_RunOnce_NotifyErrorContinues(t *testing.T) {
	leads := new(MockLeadLister)
	leads.On("ListLeads", mock.Anything).Return(workerLeads()[:2], nil)

	settings := new(MockSettings)
	settings.On("ListSLAConfigs").Return(map[string]sla.Config{}, nil)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n db.SLANotification) bool { return n.LeadID == "1" })).
		Return(false, errors.New("redis down"))
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n db.SLANotification) bool { return n.LeadID == "2" })).
		Return(true, nil)

	sent, err := newTestWorker(leads, settings, notifier).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSLAWorker_RunOnce_ListError(t *testing.T) {
	leads := new(MockLeadLister)
	leads.On("ListLeads", mock.Anything).Return(nil, errors.New("db down"))

	_, err := newTestWorker(leads, new(MockSettings), new(MockNotifier)).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestSLAWorker_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		newTestWorker(new(MockLeadLister), new(MockSettings), new(MockNotifier)).StartSLAWorker(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestChannelAndDedupKey(t *testing.T) {
	assert.Equal(t, "sla:warnings:u1", Channel("u1"))
	assert.Equal(t, "sla:warnings:unassigned", Channel(""))

	assert.Equal(t, "sla:notified:l1:not_acknowledged",
		DedupKey(db.SLANotification{LeadID: "l1", Type: "not_acknowledged"}))
	assert.Equal(t, "sla:notified:l1:overdue_appointment:a1",
		DedupKey(db.SLANotification{LeadID: "l1", Type: "overdue_appointment", ActivityID: "a1"}))
}
