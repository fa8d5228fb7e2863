// Package calculator implements the ledger engine: split computation,
// balance aggregation, per-user debt breakdowns, and settlement
// minimization. Everything here is a pure function over already-fetched
// collections; callers own membership validation and persistence.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/cleardues/cleardues/internal/models"
)

// epsilon is the tolerance below which monetary differences are treated
// as rounding noise.
const epsilon = 0.01

var (
	// ErrInvalidParticipantCount indicates an equal split with no participants.
	ErrInvalidParticipantCount = errors.New("split requires at least one participant")

	// ErrInvalidPercentageSum indicates percentage splits that do not sum
	// to 100 within tolerance.
	ErrInvalidPercentageSum = errors.New("percentages must add up to 100")
)

// SplitRequest is one participant's input to a split computation.
// For equal splits only UserID matters; percentage splits read Percentage;
// unequal splits read Amount.
type SplitRequest struct {
	UserID     string
	Amount     float64
	Percentage float64
}

// round2 rounds to two decimal places, the minor-unit precision used for
// all monetary values.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeSplits turns an expense amount and split policy into per-member
// shares. Pure and deterministic; the order of requests is significant for
// equal splits, where the rounding remainder goes to the first participant.
func ComputeSplits(amount float64, splitType models.SplitType, requests []SplitRequest) ([]models.Split, error) {
	switch splitType {
	case models.SplitEqual:
		return equalSplits(amount, requests)
	case models.SplitPercentage:
		return percentageSplits(amount, requests)
	case models.SplitUnequal:
		return unequalSplits(amount, requests)
	default:
		return nil, fmt.Errorf("invalid split type %q", splitType)
	}
}

// equalSplits divides amount evenly, assigning the rounding remainder to
// the first participant so the shares always sum back to the total.
func equalSplits(amount float64, requests []SplitRequest) ([]models.Split, error) {
	if len(requests) == 0 {
		return nil, ErrInvalidParticipantCount
	}

	share := round2(amount / float64(len(requests)))
	remainder := round2(amount - share*float64(len(requests)))

	splits := make([]models.Split, len(requests))
	for i, req := range requests {
		s := share
		if i == 0 {
			s = round2(share + remainder)
		}
		splits[i] = models.Split{UserID: req.UserID, Amount: s}
	}
	return splits, nil
}

// percentageSplits computes each share as amount × percentage / 100,
// rounded independently. The percentages must sum to 100 within tolerance.
// No remainder correction is applied, so the shares may drift from the
// total by a few minor units; every consumer tolerates that drift.
func percentageSplits(amount float64, requests []SplitRequest) ([]models.Split, error) {
	if len(requests) == 0 {
		return nil, ErrInvalidParticipantCount
	}

	var totalPct float64
	for _, req := range requests {
		totalPct += req.Percentage
	}
	if math.Abs(totalPct-100) > epsilon {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidPercentageSum, totalPct)
	}

	splits := make([]models.Split, len(requests))
	for i, req := range requests {
		splits[i] = models.Split{
			UserID:     req.UserID,
			Amount:     round2(amount * req.Percentage / 100),
			Percentage: req.Percentage,
		}
	}
	return splits, nil
}

// unequalSplits takes caller-supplied amounts, requiring them to sum to
// the total within tolerance.
func unequalSplits(amount float64, requests []SplitRequest) ([]models.Split, error) {
	if len(requests) == 0 {
		return nil, ErrInvalidParticipantCount
	}

	splits := make([]models.Split, len(requests))
	for i, req := range requests {
		splits[i] = models.Split{UserID: req.UserID, Amount: req.Amount}
	}
	if err := models.ValidateSplits(amount, splits); err != nil {
		return nil, err
	}
	return splits, nil
}
