// README: Report service: count operator activity and read it back per day.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/types"
)

type Counters interface {
	Increment(ctx context.Context, operator, day, field string, at time.Time) error
	Get(ctx context.Context, operator, day string) (*Daily, error)
}

type Service struct {
	counters Counters
	loc      *time.Location
	log      logger.ILogger
}

func NewService(counters Counters, loc *time.Location, log logger.ILogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{counters: counters, loc: loc, log: log}
}

// Add bumps one counter. Counting never blocks the operation being counted.
func (s *Service) Add(ctx context.Context, operator string, at time.Time, field string) {
	day := types.Day(at, s.loc)
	if err := s.counters.Increment(ctx, operator, day, field, at); err != nil {
		s.log.Error("daily report counter not updated",
			logger.String("operator", operator), logger.String("day", day),
			logger.String("field", field), logger.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, operator, day string) (*Daily, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, types.Required("operador")
	}
	if _, err := types.ParseDay(day, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.counters.Get(ctx, operator, day)
}
