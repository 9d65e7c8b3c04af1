// Package scheduler throttles report pushes based on recent market activity.
//
// An active market pushes on every run. Quiet runs stretch the interval:
// one quiet run waits 4h since the last push, two or more wait 8h.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/lobster/internal/database"
)

// Market states
const (
	StatusNormal    = "normal"
	StatusHot       = "hot"
	StatusSleep     = "sleep"
	StatusDeepSleep = "deep_sleep"
)

const (
	SleepInterval     = 4 * time.Hour
	DeepSleepInterval = 8 * time.Hour
)

// Store persists scheduler state between runs
type Store interface {
	LoadSchedulerState(name string) (*database.SchedulerState, error)
	SaveSchedulerState(s *database.SchedulerState) error
}

type Scheduler struct {
	store Store
	state database.SchedulerState
	now   func() time.Time
}

// New loads the named scheduler state. A nil store keeps state in memory.
func New(name string, store Store) (*Scheduler, error) {
	return newWithClock(name, store, time.Now)
}

func newWithClock(name string, store Store, now func() time.Time) (*Scheduler, error) {
	s := &Scheduler{
		store: store,
		state: database.SchedulerState{Name: name, MarketStatus: StatusNormal},
		now:   now,
	}
	if store == nil {
		return s, nil
	}

	saved, err := store.LoadSchedulerState(name)
	switch {
	case err == nil:
		s.state = *saved
	case errors.Is(err, database.ErrNotFound):
		log.Debug().Str("scheduler", name).Msg("No saved scheduler state, starting fresh")
	default:
		return nil, fmt.Errorf("load scheduler %s: %w", name, err)
	}
	return s, nil
}

// ShouldPush decides whether this run's report goes out. fresh counts tokens
// never seen before; they always push.
func (s *Scheduler) ShouldPush(active, fresh int) (bool, error) {
	push := s.decide(active, fresh)
	log.Debug().
		Str("scheduler", s.state.Name).
		Int("active", active).
		Int("fresh", fresh).
		Int("silent", s.state.ConsecutiveSilent).
		Str("status", s.state.MarketStatus).
		Bool("push", push).
		Msg("Push decision")
	return push, s.save()
}

func (s *Scheduler) decide(active, fresh int) bool {
	if fresh > 0 || active > 0 {
		s.state.ConsecutiveSilent = 0
		s.state.MarketStatus = StatusHot
		return true
	}

	s.state.ConsecutiveSilent++

	if s.state.ConsecutiveSilent >= 2 {
		s.state.MarketStatus = StatusDeepSleep
		return s.dueAfter(DeepSleepInterval)
	}
	s.state.MarketStatus = StatusSleep
	return s.dueAfter(SleepInterval)
}

// dueAfter is true when nothing was ever pushed or interval has passed
func (s *Scheduler) dueAfter(interval time.Duration) bool {
	if s.state.LastPushAt == nil {
		return true
	}
	return s.now().Sub(*s.state.LastPushAt) >= interval
}

// MarkPushed records a delivered push
func (s *Scheduler) MarkPushed() error {
	t := s.now()
	s.state.LastPushAt = &t
	return s.save()
}

// Status explains the current mode
func (s *Scheduler) Status() string {
	return Describe(s.state)
}

// Describe explains a stored scheduler state
func Describe(st database.SchedulerState) string {
	silent := st.ConsecutiveSilent
	switch st.MarketStatus {
	case StatusHot:
		return "🔥 Market active: pushing every run"
	case StatusDeepSleep:
		return fmt.Sprintf("💤 Deep sleep: %d quiet runs in a row, pushing every 8h", silent)
	case StatusSleep:
		return fmt.Sprintf("🌙 Sleep: %d quiet run, pushing every 4h", silent)
	default:
		return fmt.Sprintf("📊 Normal: %d quiet runs", silent)
	}
}

// State returns a copy of the current state
func (s *Scheduler) State() database.SchedulerState {
	return s.state
}

func (s *Scheduler) save() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveSchedulerState(&s.state); err != nil {
		return fmt.Errorf("save scheduler %s: %w", s.state.Name, err)
	}
	return nil
}
