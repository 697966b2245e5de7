package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studytrack-agent/internal/identity"
	"studytrack-agent/internal/models"
	"studytrack-agent/internal/syncer"
)

const syncQueue = "queue:tracking-sync"

// Pool drains queued sync jobs when redis is configured. The per-kind SetNX
// lock serializes sync passes across agent processes sharing one store,
// which the in-process tracker lock cannot do on its own.
type Pool struct {
	redis       *redis.Client
	engine      *syncer.Engine
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, engine *syncer.Engine, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		engine:      engine,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d sync worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue queues one sync job for the workers.
func (p *Pool) Enqueue(ctx context.Context, job models.SyncJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode sync job: %w", err)
	}
	if err := p.redis.LPush(ctx, syncQueue, body).Err(); err != nil {
		return fmt.Errorf("failed to enqueue sync job: %w", err)
	}
	return nil
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Sync worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, syncQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.SyncJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Sync worker %d: failed to parse job: %v", id, err)
			continue
		}

		p.runJob(ctx, id, job)
	}
}

func (p *Pool) runJob(ctx context.Context, id int, job models.SyncJob) {
	kind, ok := models.KindByName(job.Kind)
	if !ok {
		log.Printf("Sync worker %d: job %s names unknown kind %q", id, job.ID, job.Kind)
		return
	}

	// One sync pass per storage key at a time, across processes.
	lockKey := fmt.Sprintf("sync_lock:%s", kind.StorageKey)
	locked, err := p.redis.SetNX(ctx, lockKey, "1", time.Minute).Result()
	if err != nil || !locked {
		// Another worker is already syncing this kind; the pending records
		// will go with its pass.
		return
	}
	defer p.redis.Del(ctx, lockKey)

	log.Printf("Sync worker %d: processing job %s (kind: %s)", id, job.ID, job.Kind)

	result, err := p.engine.SyncPending(ctx, kind, job.ChapterID, job.SlideID)
	if errors.Is(err, identity.ErrMissingIdentity) {
		log.Printf("Sync worker %d: job %s skipped, no identity yet", id, job.ID)
		return
	}
	if err != nil {
		log.Printf("Sync worker %d: job %s failed: %v", id, job.ID, err)
		return
	}
	if result.Failed > 0 {
		log.Printf("Sync worker %d: job %s left %d records pending", id, job.ID, result.Failed)
	}
}
