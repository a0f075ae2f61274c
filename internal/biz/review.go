package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// ReviewUsecase handles the user's actions on flagged and hidden items.
type ReviewUsecase struct {
	repo StateRepo
	log  *log.Helper
}

// NewReviewUsecase creates a ReviewUsecase.
func NewReviewUsecase(repo StateRepo, logger log.Logger) *ReviewUsecase {
	return &ReviewUsecase{repo: repo, log: log.NewHelper(logger)}
}

// Flagged returns the flagged items, oldest first.
func (uc *ReviewUsecase) Flagged(ctx context.Context) ([]FlaggedItem, error) {
	var items []FlaggedItem
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		items, err = tx.Flagged()
		return err
	})
	return items, err
}

// Hidden returns the hidden items, oldest first.
func (uc *ReviewUsecase) Hidden(ctx context.Context) ([]HiddenItem, error) {
	var items []HiddenItem
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		items, err = tx.Hidden()
		return err
	})
	return items, err
}

// Remove deletes one flagged item.
func (uc *ReviewUsecase) Remove(ctx context.Context, index int) (FlaggedItem, error) {
	return uc.move(ctx, index, "review:delete", func(tx StateTx) (FlaggedItem, error) {
		it, err := tx.RemoveFlaggedAt(index)
		if err != nil {
			return it, err
		}
		return it, tx.IncMetric(MetricDeleted, 1)
	})
}

// Clear drops every flagged item.
func (uc *ReviewUsecase) Clear(ctx context.Context) error {
	return uc.repo.Update(ctx, func(tx StateTx) error {
		if err := tx.SetFlagged(nil); err != nil {
			return err
		}
		return tx.AppendLog("review:clear")
	})
}

// Correct marks a flagged item as a false positive and teaches it as safe.
func (uc *ReviewUsecase) Correct(ctx context.Context, index int) (FlaggedItem, error) {
	return uc.move(ctx, index, "review:safe", func(tx StateTx) (FlaggedItem, error) {
		return tx.CorrectFalsePositive(index)
	})
}

// Hide moves a flagged item to hidden.
func (uc *ReviewUsecase) Hide(ctx context.Context, index int) (FlaggedItem, error) {
	return uc.move(ctx, index, "review:hide", func(tx StateTx) (FlaggedItem, error) {
		return tx.HideFlaggedAt(index)
	})
}

// Unhide moves a hidden item back to flagged.
func (uc *ReviewUsecase) Unhide(ctx context.Context, index int) (HiddenItem, error) {
	return uc.move(ctx, index, "review:unhide", func(tx StateTx) (HiddenItem, error) {
		return tx.UnhideAt(index)
	})
}

// Report counts a report of a flagged item to the platform. The item stays flagged.
func (uc *ReviewUsecase) Report(ctx context.Context, index int) (FlaggedItem, error) {
	return uc.move(ctx, index, "review:report", func(tx StateTx) (FlaggedItem, error) {
		items, err := tx.Flagged()
		if err != nil {
			return FlaggedItem{}, err
		}
		if index < 0 || index >= len(items) {
			return FlaggedItem{}, ErrIndexOutOfRange
		}
		return items[index], tx.IncMetric(MetricReported, 1)
	})
}

func (uc *ReviewUsecase) move(ctx context.Context, index int, action string, fn func(tx StateTx) (FlaggedItem, error)) (FlaggedItem, error) {
	var item FlaggedItem
	err := uc.repo.Update(ctx, func(tx StateTx) error {
		var err error
		if item, err = fn(tx); err != nil {
			return err
		}
		return tx.AppendLog(action + " '" + Preview(item.Text) + "'")
	})
	if err != nil {
		return FlaggedItem{}, err
	}
	uc.log.Debugf("%s index=%d", action, index)
	return item, nil
}

// Preview shortens a comment for log lines.
func Preview(text string) string {
	const n = 30
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
