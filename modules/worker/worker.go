package worker

import (
	"context"
	"log"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/config"
	redisclient "github.com/art-solutions/nanobana-gen/modules/common/redis"
	"github.com/art-solutions/nanobana-gen/modules/localize"
)

// StartWorker - Redis queue consumer. Blocks forever popping job ids from
// the queue and running each through the localization orchestrator. At most
// WORKER_CONCURRENCY jobs run at once; while the pool is full the queue read
// waits, so the list itself acts as the backlog.
func StartWorker(localizer *localize.Service) {
	log.Println("🔄 Redis Queue Worker starting...")

	cfg := config.GetConfig()

	rdb := redisclient.Connect(cfg)
	if rdb == nil {
		log.Println("⚠️  Redis unavailable, queue worker disabled")
		return
	}
	log.Println("✅ Redis connected successfully")

	log.Printf("👀 Watching queue: %s (concurrency=%d)", redisclient.QueueKey, cfg.WorkerConcurrency)

	ctx := context.Background()
	sem := make(chan struct{}, cfg.WorkerConcurrency)

	for {
		// BRPOP blocks until a job id arrives.
		result, err := rdb.BRPop(ctx, 0, redisclient.QueueKey).Result()
		if err != nil {
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0] is the queue key, result[1] the job id.
		jobID := result[1]
		log.Printf("🎯 Received job: %s", jobID)

		sem <- struct{}{}
		go func(jobID string) {
			defer func() { <-sem }()

			// A lost claim race or unknown id is logged and dropped; job
			// failures are already recorded on the job record itself.
			if err := localizer.Process(ctx, jobID); err != nil {
				log.Printf("⚠️  Job %s not processed: %v", jobID, err)
			}
		}(jobID)
	}
}
