package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/calcvoice/calcvoice/internal/intent"
	"github.com/calcvoice/calcvoice/internal/notifications"
	"github.com/calcvoice/calcvoice/internal/store"
)

// TrainingCorpus is the slice of the store the job needs. *store.Store
// satisfies it.
type TrainingCorpus interface {
	CountTrainingSamples(ctx context.Context) (int, error)
	ListTrainingSamples(ctx context.Context) ([]store.TrainingSample, error)
}

// RetrainJob periodically rebuilds the intent classifier from the
// training corpus and hot-swaps it into the interpreter. It runs on a
// configurable interval (default: 15 minutes) and skips the rebuild when
// the corpus has not changed since the last build.
type RetrainJob struct {
	store    TrainingCorpus
	interp   *intent.Interpreter
	discord  *notifications.Discord
	logger   *log.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// lastCount is read by the ticker goroutine and written by Retrain,
	// which the training API also calls.
	mu        sync.Mutex
	lastCount int
}

// NewRetrainJob creates a new retrain job. lastCount is the corpus size
// the current model was built from, so an unchanged corpus does not
// trigger a rebuild on the first tick.
func NewRetrainJob(s TrainingCorpus, interp *intent.Interpreter, discord *notifications.Discord, logger *log.Logger, interval time.Duration, lastCount int) *RetrainJob {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &RetrainJob{
		store:     s,
		interp:    interp,
		discord:   discord,
		logger:    logger,
		interval:  interval,
		stopCh:    make(chan struct{}),
		lastCount: lastCount,
	}
}

// Start begins the background job.
func (j *RetrainJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("RetrainJob: started (interval=%v)", j.interval)
}

// Stop gracefully stops the background job.
func (j *RetrainJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("RetrainJob: stopped")
}

func (j *RetrainJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.tick()
		case <-j.stopCh:
			return
		}
	}
}

func (j *RetrainJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.store.CountTrainingSamples(ctx)
	if err != nil {
		j.logger.Printf("RetrainJob: failed to count training samples: %v", err)
		return
	}
	j.mu.Lock()
	unchanged := count == j.lastCount
	j.mu.Unlock()
	if unchanged {
		return
	}

	if _, err := j.Retrain(ctx); err != nil {
		j.logger.Printf("RetrainJob: retrain failed: %v", err)
	}
}

// Retrain rebuilds the model from the stored corpus and swaps it in.
// Returns the number of corpus samples used. Also called synchronously
// from the training API.
func (j *RetrainJob) Retrain(ctx context.Context) (int, error) {
	started := time.Now()

	records, err := j.store.ListTrainingSamples(ctx)
	if err != nil {
		return 0, err
	}
	samples := make([]intent.Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, intent.Sample{Text: r.Text, Label: r.Label})
	}

	model, err := intent.BuildModel(samples)
	if err != nil {
		return 0, err
	}
	j.interp.Swap(model)
	j.mu.Lock()
	j.lastCount = len(records)
	j.mu.Unlock()

	took := time.Since(started)
	j.logger.Printf("RetrainJob: rebuilt model from %d samples in %s", len(records), took.Round(time.Millisecond))
	if j.discord != nil {
		j.discord.NotifyModelRetrained(ctx, len(records), took)
	}
	return len(records), nil
}
