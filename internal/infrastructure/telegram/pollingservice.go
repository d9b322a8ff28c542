package telegram

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/channelgate/channelgate/internal/shared/goroutine"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

const (
	// Updates are dispatched to workers by sender (senderID % workerCount) so one
	// user's updates stay ordered while different users proceed concurrently.
	defaultWorkerCount = 4
	defaultPollTimeout = 30
	pollErrorBackoff   = 5 * time.Second
)

// OffsetStore persists polling offset across restarts.
type OffsetStore interface {
	GetOffset(ctx context.Context) (int64, error)
	SaveOffset(ctx context.Context, offset int64) error
}

// UpdateHandler defines the interface for handling Telegram updates
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *Update) error
}

// PollingService handles long polling for Telegram updates
type PollingService struct {
	botService  *BotService
	handler     UpdateHandler
	logger      logger.Interface
	offsetStore OffsetStore // nil = in-memory only
	pollTimeout int
	workerCount int

	lastUpdateID       int64
	processedWatermark int64 // highest update_id processed in this session
}

// NewPollingService creates a new polling service. offsetStore may be nil.
func NewPollingService(
	botService *BotService,
	handler UpdateHandler,
	log logger.Interface,
	offsetStore OffsetStore,
) *PollingService {
	return &PollingService{
		botService:  botService,
		handler:     handler,
		logger:      log.Named("telegram_polling"),
		offsetStore: offsetStore,
		pollTimeout: defaultPollTimeout,
		workerCount: defaultWorkerCount,
	}
}

// Run polls until ctx is cancelled. It returns nil on a clean shutdown.
func (s *PollingService) Run(ctx context.Context) error {
	if s.offsetStore != nil {
		saved, err := s.offsetStore.GetOffset(ctx)
		if err != nil {
			s.logger.Warnw("failed to load polling offset, starting from 0", "error", err)
		} else if saved > 0 {
			s.lastUpdateID = saved
			s.processedWatermark = saved
			s.logger.Infow("loaded polling offset from store", "offset", saved)
		}
	}

	// getUpdates is refused while a webhook is registered.
	if err := s.botService.DeleteWebhook(ctx); err != nil {
		s.logger.Warnw("failed to delete webhook before polling", "error", err)
	}

	s.logger.Infow("starting telegram polling service",
		"timeout", s.pollTimeout,
		"workers", s.workerCount,
	)

	for {
		if ctx.Err() != nil {
			s.logger.Infow("telegram polling service stopped")
			return nil
		}
		s.poll(ctx)
	}
}

func (s *PollingService) poll(ctx context.Context) {
	offset := int64(0)
	if s.lastUpdateID > 0 {
		offset = s.lastUpdateID + 1
	}
	updates, err := s.botService.GetUpdates(ctx, offset, s.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("failed to get updates", "error", err)
		wait := pollErrorBackoff
		if ra := RetryAfterOf(err); ra > wait {
			wait = ra
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		return
	}

	if len(updates) == 0 {
		return
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].UpdateID < updates[j].UpdateID })

	// Skip updates already handled before a restart overlapped with the stored offset.
	filtered := make([]Update, 0, len(updates))
	for _, u := range updates {
		if u.UpdateID > s.processedWatermark {
			filtered = append(filtered, u)
		}
	}

	var handled map[int64]struct{}
	if len(filtered) > 0 {
		handled = s.dispatch(ctx, filtered)
	}

	// Commit only after all workers finished, so a crash mid-batch replays it. The offset
	// never moves past an update a worker gave up on because ctx was cancelled.
	commit := s.lastUpdateID
	for _, u := range updates {
		if u.UpdateID > s.processedWatermark {
			if _, ok := handled[u.UpdateID]; !ok {
				break
			}
		}
		if u.UpdateID > commit {
			commit = u.UpdateID
		}
	}
	if commit == s.lastUpdateID {
		return
	}
	if pending := len(filtered) - len(handled); pending > 0 {
		s.logger.Infow("batch interrupted, unhandled updates will be redelivered",
			"committed", commit,
			"pending", pending,
		)
	}

	s.lastUpdateID = commit
	if commit > s.processedWatermark {
		s.processedWatermark = commit
	}

	if s.offsetStore != nil {
		// The poll context may already be cancelled during shutdown.
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.offsetStore.SaveOffset(saveCtx, s.lastUpdateID); err != nil {
			s.logger.Warnw("failed to save polling offset", "error", err)
		}
	}
}

// dispatch runs the batch on the workers and returns the ids they got to.
func (s *PollingService) dispatch(ctx context.Context, updates []Update) map[int64]struct{} {
	buckets := make([][]Update, s.workerCount)
	for _, u := range updates {
		idx := s.workerFor(&u)
		buckets[idx] = append(buckets[idx], u)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handled = make(map[int64]struct{}, len(updates))
	)
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		wg.Add(1)
		workerIdx, workerBucket := i, bucket
		goroutine.SafeGo(s.logger, "telegram-worker-batch", func() {
			defer wg.Done()
			done := s.processBatch(ctx, workerIdx, workerBucket)
			mu.Lock()
			for _, id := range done {
				handled[id] = struct{}{}
			}
			mu.Unlock()
		})
	}
	wg.Wait()
	return handled
}

// processBatch handles one worker's updates in order and returns the ids it handled. A
// panic or error in one update is logged and the rest of the batch continues. Once ctx is
// cancelled the remaining updates are left for redelivery.
func (s *PollingService) processBatch(ctx context.Context, workerIdx int, updates []Update) []int64 {
	done := make([]int64, 0, len(updates))
	for i := range updates {
		if ctx.Err() != nil {
			return done
		}
		func(u *Update) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorw("panic recovered in update handler",
						"worker", workerIdx,
						"update_id", u.UpdateID,
						"panic", fmt.Sprintf("%v", r),
					)
				}
			}()

			if err := s.handler.HandleUpdate(ctx, u); err != nil {
				s.logger.Errorw("failed to handle update",
					"worker", workerIdx,
					"update_id", u.UpdateID,
					"error", err,
				)
			}
		}(&updates[i])
		done = append(done, updates[i].UpdateID)
	}
	return done
}

func (s *PollingService) workerFor(u *Update) int {
	key := u.SenderID()
	if key == 0 {
		key = u.UpdateID
	}
	idx := int(key % int64(s.workerCount))
	if idx < 0 {
		idx += s.workerCount
	}
	return idx
}
