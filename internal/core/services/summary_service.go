package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type summaryService struct {
	pollRepo       ports.PollRepository
	votes          ports.VoteService
	pollResultRepo ports.PollResultRepository
	log            *logrus.Entry
}

func NewSummaryService(pollRepo ports.PollRepository, votes ports.VoteService, pollResultRepo ports.PollResultRepository, log *logrus.Entry) ports.SummaryService {
	return &summaryService{
		pollRepo:       pollRepo,
		votes:          votes,
		pollResultRepo: pollResultRepo,
		log:            log.WithField("module", "summary"),
	}
}

// SummarizeAllVotes snapshots the tally and tiers of every poll into the
// results store, one goroutine per poll.
func (s *summaryService) SummarizeAllVotes(ctx context.Context) error {
	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(polls))

	for _, poll := range polls {
		wg.Add(1)
		go func(p *domain.Poll) {
			defer wg.Done()
			if err := s.summarize(ctx, p); err != nil {
				errChan <- fmt.Errorf("failed to summarize poll %s: %w", p.ID, err)
			}
		}(poll)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	s.log.WithField("polls", len(polls)).Info("vote summaries written")
	return nil
}

func (s *summaryService) summarize(ctx context.Context, poll *domain.Poll) error {
	agg, err := s.votes.Tally(ctx, poll)
	if err != nil {
		return err
	}

	ranks := agg.Ranks()
	now := time.Now()
	results := make([]domain.PollSlotResult, 0, agg.Len())
	for _, key := range agg.Keys() {
		results = append(results, domain.PollSlotResult{
			PollID:        poll.ID,
			SlotKey:       key,
			VoteCount:     agg.Count(key),
			Tier:          int(ranks[key]),
			LastUpdatedAt: now,
		})
	}

	return s.pollResultRepo.ReplaceSlotResults(ctx, poll.ID, results)
}

