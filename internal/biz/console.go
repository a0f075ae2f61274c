package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// ConsoleUsecase exposes the diagnostic trail and counters.
type ConsoleUsecase struct {
	repo StateRepo
	log  *log.Helper
}

// NewConsoleUsecase creates a ConsoleUsecase.
func NewConsoleUsecase(repo StateRepo, logger log.Logger) *ConsoleUsecase {
	return &ConsoleUsecase{repo: repo, log: log.NewHelper(logger)}
}

func (uc *ConsoleUsecase) Logs(ctx context.Context) ([]LogEntry, error) {
	var logs []LogEntry
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		logs, err = tx.Logs()
		return err
	})
	return logs, err
}

func (uc *ConsoleUsecase) ClearLogs(ctx context.Context) error {
	return uc.repo.Update(ctx, func(tx StateTx) error {
		return tx.ClearLogs()
	})
}

// Metrics returns every counter, zero when never incremented.
func (uc *ConsoleUsecase) Metrics(ctx context.Context) (Metrics, error) {
	var m Metrics
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		m, err = tx.Metrics()
		return err
	})
	return m, err
}

// Subscribe forwards committed state changes.
func (uc *ConsoleUsecase) Subscribe() (<-chan StateEvent, func()) {
	return uc.repo.Subscribe()
}
