package biz

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// Verdict is a human answer to a training prompt.
type Verdict string

const (
	VerdictHate Verdict = "hate"
	VerdictSafe Verdict = "safe"
)

// TrainingUsecase drives the feedback loop: queued texts get a human
// verdict and become user-taught phrases.
type TrainingUsecase struct {
	repo StateRepo
	log  *log.Helper
}

// NewTrainingUsecase creates a TrainingUsecase.
func NewTrainingUsecase(repo StateRepo, logger log.Logger) *TrainingUsecase {
	return &TrainingUsecase{repo: repo, log: log.NewHelper(logger)}
}

// Next returns the oldest queued text without consuming it.
func (uc *TrainingUsecase) Next(ctx context.Context) (string, error) {
	var (
		text string
		ok   bool
	)
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		text, ok, err = tx.PeekTraining()
		return err
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrQueueEmpty
	}
	return text, nil
}

// Answer consumes the oldest queued text and teaches it with the verdict.
// It returns the consumed text. A blank text is consumed without teaching.
func (uc *TrainingUsecase) Answer(ctx context.Context, v Verdict) (string, error) {
	var text string
	err := uc.repo.Update(ctx, func(tx StateTx) error {
		t, ok, err := tx.DequeueTraining()
		if err != nil {
			return err
		}
		if !ok {
			return ErrQueueEmpty
		}
		text = t
		if NormalizePhrase(t) == "" {
			return tx.AppendLog("train: skipped blank entry")
		}
		if err := teach(tx, v, t); err != nil {
			return err
		}
		return tx.AppendLog("train:" + string(v) + " '" + Preview(t) + "'")
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Teach adds a phrase to the user lexicon directly.
func (uc *TrainingUsecase) Teach(ctx context.Context, v Verdict, phrase string) error {
	if NormalizePhrase(phrase) == "" {
		return ErrBlankPhrase
	}
	return uc.repo.Update(ctx, func(tx StateTx) error {
		if err := teach(tx, v, phrase); err != nil {
			return err
		}
		return tx.AppendLog("train:" + string(v) + " '" + Preview(phrase) + "'")
	})
}

// Lexicon returns the user-taught phrases.
func (uc *TrainingUsecase) Lexicon(ctx context.Context) (UserLexicon, error) {
	var lex UserLexicon
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		lex, err = tx.Lexicon()
		return err
	})
	return lex, err
}

// ParseVerdict accepts "hate" or "safe", case-insensitively.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictHate:
		return VerdictHate, true
	case VerdictSafe:
		return VerdictSafe, true
	}
	return "", false
}

func teach(tx StateTx, v Verdict, text string) error {
	if v == VerdictHate {
		return tx.AddHatePhrase(text)
	}
	return tx.AddSafePhrase(text)
}
