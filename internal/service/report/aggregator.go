// Package report строит недельную сводку по произведённым роботам и сериализует её в xlsx.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// DefaultWindow задаёт длину окна отчёта.
const DefaultWindow = 7 * 24 * time.Hour

// VersionCount — количество роботов одной версии.
type VersionCount struct {
	Version string
	Count   int
}

// ModelSummary — версии одной модели в порядке возрастания.
type ModelSummary struct {
	Model    string
	Versions []VersionCount
}

// Summary — сводка по моделям в порядке возрастания.
type Summary struct {
	Models []ModelSummary
}

// Empty сообщает, что в окне не оказалось ни одного робота.
func (s Summary) Empty() bool {
	return len(s.Models) == 0
}

// Aggregator группирует роботов за окно по модели и версии.
type Aggregator struct {
	robots domain.RobotRepository
	clock  clock.Clock
	window time.Duration
}

// AggregatorOption настраивает Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock задаёт источник текущего времени.
func WithClock(c clock.Clock) AggregatorOption {
	return func(a *Aggregator) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithWindow задаёт длину окна отчёта.
func WithWindow(window time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if window > 0 {
			a.window = window
		}
	}
}

// NewAggregator создаёт Aggregator поверх хранилища роботов.
func NewAggregator(robots domain.RobotRepository, options ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		robots: robots,
		clock:  clock.NewSystem(),
		window: DefaultWindow,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// WindowStart возвращает нижнюю границу окна относительно текущего времени.
func (a *Aggregator) WindowStart() time.Time {
	return a.clock.Now().Add(-a.window)
}

// SummarizeLastWeek строит сводку за окно, заканчивающееся сейчас.
func (a *Aggregator) SummarizeLastWeek(ctx context.Context) (Summary, error) {
	return a.Summarize(ctx, a.WindowStart())
}

// Summarize строит сводку по роботам с Created >= windowStart.
func (a *Aggregator) Summarize(ctx context.Context, windowStart time.Time) (Summary, error) {
	robots, err := a.robots.ListCreatedSince(ctx, windowStart)
	if err != nil {
		return Summary{}, domain.StoreError(fmt.Errorf("list robots since %s: %w", windowStart.Format(time.RFC3339), err))
	}
	return Group(robots, windowStart), nil
}

// Group считает роботов по модели и версии. Роботы раньше windowStart не учитываются.
func Group(robots []domain.Robot, windowStart time.Time) Summary {
	counts := make(map[string]map[string]int)
	for _, robot := range robots {
		if robot.Created.Before(windowStart) {
			continue
		}
		versions, ok := counts[robot.Model]
		if !ok {
			versions = make(map[string]int)
			counts[robot.Model] = versions
		}
		versions[robot.Version]++
	}

	models := make([]string, 0, len(counts))
	for model := range counts {
		models = append(models, model)
	}
	sort.Strings(models)

	summary := Summary{Models: make([]ModelSummary, 0, len(models))}
	for _, model := range models {
		versions := make([]string, 0, len(counts[model]))
		for version := range counts[model] {
			versions = append(versions, version)
		}
		sort.Strings(versions)

		entry := ModelSummary{Model: model, Versions: make([]VersionCount, 0, len(versions))}
		for _, version := range versions {
			entry.Versions = append(entry.Versions, VersionCount{Version: version, Count: counts[model][version]})
		}
		summary.Models = append(summary.Models, entry)
	}
	return summary
}
