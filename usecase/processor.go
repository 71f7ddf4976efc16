package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
	"github.com/postpilot-io/postpilot/infrastructure/valkey"
	"github.com/postpilot-io/postpilot/pkg/recurrence"
	"github.com/postpilot-io/postpilot/repository"
)

// ProcessorConfig tunes one processing pass.
type ProcessorConfig struct {
	BatchLimit     int // due posts fetched per pass
	Concurrency    int // posts processed simultaneously within a pass
	PublishTimeout time.Duration
	LockTTL        time.Duration // cross-node pass lock expiry
	Recurrence     recurrence.Options
}

const (
	defaultBatchLimit     = 50
	defaultConcurrency    = 5
	defaultPublishTimeout = 30 * time.Second
	defaultLockTTL        = 55 * time.Second
	recentRunsKept        = 20
)

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaultLockTTL
	}
	return c
}

// PostError pairs a post id with what went wrong with it during a pass.
type PostError struct {
	PostID string `json:"post_id"`
	Error  string `json:"error"`
}

// ProcessingStats summarizes one pass over the due posts.
type ProcessingStats struct {
	Skipped    bool        `json:"skipped"` // pass not executed: a previous one is still running
	Processed  int         `json:"processed"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []PostError `json:"errors,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Elapsed    string      `json:"elapsed"`
}

// Processor is the publish orchestrator: it selects due posts, fans each
// out to the owner's platform connections, aggregates per-platform results,
// applies the retry policy and expands recurrences.
//
// Construct one per process and share it; the in-flight guard lives here
// rather than in any global.
type Processor struct {
	repo     repository.IPostRepository
	resolver domainConnection.Resolver
	registry *domainPublisher.Registry
	calc     *recurrence.Calculator
	vk       *valkey.Client // optional cross-node lock
	cfg      ProcessorConfig

	running atomic.Bool

	mu     sync.Mutex
	recent []ProcessingStats
}

func NewProcessor(
	repo repository.IPostRepository,
	resolver domainConnection.Resolver,
	registry *domainPublisher.Registry,
	vk *valkey.Client,
	cfg ProcessorConfig,
) *Processor {
	cfg = cfg.withDefaults()
	return &Processor{
		repo:     repo,
		resolver: resolver,
		registry: registry,
		calc:     recurrence.NewCalculator(cfg.Recurrence),
		vk:       vk,
		cfg:      cfg,
	}
}

// ProcessDuePosts runs one pass: fetch a bounded batch of due posts and
// process them in groups of cfg.Concurrency, waiting for each group to
// settle before starting the next. If a previous pass is still running the
// call returns immediately with Skipped set and no due-post fetch.
func (p *Processor) ProcessDuePosts(ctx context.Context) (ProcessingStats, error) {
	stats := ProcessingStats{StartedAt: time.Now().UTC()}

	if !p.running.CompareAndSwap(false, true) {
		stats.Skipped = true
		stats.FinishedAt = stats.StartedAt
		stats.Elapsed = "0s"
		logrus.Debug("[SCHEDULER] Pass skipped: previous pass still running")
		return stats, nil
	}
	defer p.running.Store(false)

	// Best-effort cross-node guard; the lock expires on its own so a
	// crashed node never wedges the scheduler.
	if p.vk != nil {
		lockKey := p.vk.Key("lock", "scheduler", "pass")
		if !p.vk.AcquireLock(ctx, lockKey, p.cfg.LockTTL) {
			stats.Skipped = true
			stats.FinishedAt = time.Now().UTC()
			stats.Elapsed = stats.FinishedAt.Sub(stats.StartedAt).String()
			logrus.Debug("[SCHEDULER] Pass skipped: another node holds the lock")
			return stats, nil
		}
	}

	due, err := p.repo.GetDuePosts(ctx, stats.StartedAt, p.cfg.BatchLimit)
	if err != nil {
		p.finish(&stats)
		return stats, fmt.Errorf("failed to fetch due posts: %w", err)
	}

	if len(due) > 0 {
		logrus.Infof("[SCHEDULER] Processing %d due post(s)", len(due))
	}

	var mu sync.Mutex
	for start := 0; start < len(due); start += p.cfg.Concurrency {
		end := start + p.cfg.Concurrency
		if end > len(due) {
			end = len(due)
		}

		var wg conc.WaitGroup
		for _, post := range due[start:end] {
			post := post
			wg.Go(func() {
				outcome := p.processPost(ctx, post)
				mu.Lock()
				stats.Processed++
				if outcome.published {
					stats.Successful++
				} else {
					stats.Failed++
				}
				stats.Errors = append(stats.Errors, outcome.errors...)
				mu.Unlock()
			})
		}
		wg.Wait()
	}

	p.finish(&stats)
	logrus.Infof("[SCHEDULER] Pass complete: processed=%d successful=%d failed=%d elapsed=%s",
		stats.Processed, stats.Successful, stats.Failed, stats.Elapsed)
	return stats, nil
}

func (p *Processor) finish(stats *ProcessingStats) {
	stats.FinishedAt = time.Now().UTC()
	stats.Elapsed = stats.FinishedAt.Sub(stats.StartedAt).String()

	p.mu.Lock()
	p.recent = append(p.recent, *stats)
	if len(p.recent) > recentRunsKept {
		p.recent = p.recent[len(p.recent)-recentRunsKept:]
	}
	p.mu.Unlock()
}

// RecentRuns returns the stats of the latest passes, newest last.
func (p *Processor) RecentRuns() []ProcessingStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProcessingStats, len(p.recent))
	copy(out, p.recent)
	return out
}

// Running reports whether a pass is currently executing.
func (p *Processor) Running() bool {
	return p.running.Load()
}

type postOutcome struct {
	published bool
	errors    []PostError
}

// processPost handles one due post end to end. Failures never propagate;
// everything is captured in the outcome so sibling posts are unaffected.
func (p *Processor) processPost(ctx context.Context, post domainPost.ScheduledPost) postOutcome {
	var outcome postOutcome

	conns, resolveErrs := p.resolveConnections(ctx, post)
	for _, e := range resolveErrs {
		outcome.errors = append(outcome.errors, PostError{PostID: post.ID, Error: e.Error()})
	}

	if len(conns) == 0 {
		if len(resolveErrs) > 0 {
			// The store/resolver misbehaved; charge an attempt so the
			// post eventually fails rather than looping forever.
			p.markAsFailed(ctx, post, errors.Join(resolveErrs...), true)
		} else {
			// Nothing to publish to and retrying cannot fix that.
			err := fmt.Errorf("no connected account for platforms %s", platformList(post.Content.Platforms))
			outcome.errors = append(outcome.errors, PostError{PostID: post.ID, Error: err.Error()})
			p.markAsFailed(ctx, post, err, false)
		}
		return outcome
	}

	successes, failures := p.fanOut(ctx, post, conns)
	for _, f := range failures {
		outcome.errors = append(outcome.errors, PostError{PostID: post.ID, Error: f.Error()})
	}

	if len(successes) > 0 {
		// Partial success still publishes; the failed platforms stay out
		// of the result maps but remain visible in the pass errors.
		if err := p.markAsPublished(ctx, post, successes); err != nil {
			outcome.errors = append(outcome.errors, PostError{PostID: post.ID, Error: err.Error()})
		}
		outcome.published = true
		p.expandRecurrence(ctx, post, &outcome)
		return outcome
	}

	p.markAsFailed(ctx, post, errors.Join(failures...), true)
	return outcome
}

func (p *Processor) resolveConnections(ctx context.Context, post domainPost.ScheduledPost) ([]domainConnection.Connection, []error) {
	var conns []domainConnection.Connection
	var errs []error
	for _, platform := range post.Content.Platforms {
		resolved, err := p.resolver.Resolve(ctx, post.OwnerID, post.OrganizationID, platform)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s connections: %w", platform, err))
			continue
		}
		conns = append(conns, resolved...)
	}
	return conns, errs
}

// fanOut publishes to every connection concurrently and waits for all of
// them to settle. One connection's failure never aborts the others.
func (p *Processor) fanOut(ctx context.Context, post domainPost.ScheduledPost, conns []domainConnection.Connection) (map[domainPost.Platform]domainPublisher.PublishResult, []error) {
	var mu sync.Mutex
	successes := make(map[domainPost.Platform]domainPublisher.PublishResult)
	var failures []error

	var wg conc.WaitGroup
	for _, conn := range conns {
		conn := conn
		wg.Go(func() {
			result, err := p.publishOne(ctx, post, conn)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes[conn.Platform] = result
		})
	}
	wg.Wait()

	return successes, failures
}

func (p *Processor) publishOne(ctx context.Context, post domainPost.ScheduledPost, conn domainConnection.Connection) (domainPublisher.PublishResult, error) {
	pub, err := p.registry.Get(conn.Platform)
	if err != nil {
		return domainPublisher.PublishResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	result, err := pub.Publish(callCtx, post.Content, conn)
	if err != nil {
		logrus.WithError(err).Warnf("[SCHEDULER] Publish failed for post %s on %s (%s)", post.ID, conn.Platform, conn.DisplayName)
		return domainPublisher.PublishResult{}, err
	}

	logrus.Infof("[SCHEDULER] Post %s published on %s as %s", post.ID, conn.Platform, result.PlatformPostID)
	return result, nil
}

// markAsPublished records a successful publish. It is idempotent: the
// result maps merge by platform key and published_at is only set once, so
// repeating it for an already-published post changes nothing.
func (p *Processor) markAsPublished(ctx context.Context, post domainPost.ScheduledPost, successes map[domainPost.Platform]domainPublisher.PublishResult) error {
	now := time.Now().UTC()
	status := domainPost.StatusPublished

	postIDs := make(map[domainPost.Platform]string, len(successes))
	urls := make(map[domainPost.Platform]string, len(successes))
	for platform, res := range successes {
		postIDs[platform] = res.PlatformPostID
		if res.URL != "" {
			urls[platform] = res.URL
		}
	}

	_, err := p.repo.UpdatePost(ctx, post.ID, repository.PostChanges{
		Status:          &status,
		PlatformPostIDs: postIDs,
		PublishURLs:     urls,
		PublishedAt:     &now,
	})
	if err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to mark post %s published", post.ID)
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// markAsFailed applies the whole retry policy. With shouldRetry the attempt
// is charged and the post stays scheduled until attempts reach the ceiling;
// without it the post fails immediately and no attempt is charged (the
// precondition cannot be fixed by retrying).
func (p *Processor) markAsFailed(ctx context.Context, post domainPost.ScheduledPost, cause error, shouldRetry bool) {
	now := time.Now().UTC()
	attempts := post.Attempts
	status := domainPost.StatusFailed

	if shouldRetry {
		attempts++
		if attempts < post.MaxAttempts {
			// Re-arm: scheduled_for is untouched, so the post is picked
			// up again on the very next pass.
			status = domainPost.StatusScheduled
		}
	}

	msg := cause.Error()
	_, err := p.repo.UpdatePost(ctx, post.ID, repository.PostChanges{
		Status:        &status,
		Attempts:      &attempts,
		LastAttemptAt: &now,
		LastError:     &msg,
	})
	if err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to record failure for post %s", post.ID)
		return
	}

	if status == domainPost.StatusFailed {
		logrus.Warnf("[SCHEDULER] Post %s failed permanently after %d attempt(s): %s", post.ID, attempts, msg)
	} else {
		logrus.Infof("[SCHEDULER] Post %s failed (attempt %d/%d), will retry on next pass", post.ID, attempts, post.MaxAttempts)
	}
}

// expandRecurrence creates the next sibling of a recurring post. The chain
// lives through brand-new records; the published record is done.
func (p *Processor) expandRecurrence(ctx context.Context, post domainPost.ScheduledPost, outcome *postOutcome) {
	next, ok := p.calc.Next(post.Schedule, post.Occurrence)
	if !ok {
		return
	}

	now := time.Now().UTC()
	sibling := domainPost.ScheduledPost{
		ID:             uuid.NewString(),
		OwnerID:        post.OwnerID,
		OrganizationID: post.OrganizationID,
		Content:        post.Content,
		Schedule: domainPost.Schedule{
			PublishAt:  next,
			Recurrence: post.Schedule.Recurrence,
		},
		Status:       domainPost.StatusScheduled,
		ScheduledFor: next,
		MaxAttempts:  post.MaxAttempts,
		Occurrence:   post.Occurrence + 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.repo.CreatePost(ctx, sibling); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Failed to create next occurrence of post %s", post.ID)
		outcome.errors = append(outcome.errors, PostError{PostID: post.ID, Error: fmt.Sprintf("create next occurrence: %v", err)})
		return
	}
	logrus.Infof("[SCHEDULER] Post %s recurs: next occurrence %s scheduled for %s", post.ID, sibling.ID, next.Format(time.RFC3339))
}

func platformList(platforms []domainPost.Platform) string {
	parts := make([]string, len(platforms))
	for i, p := range platforms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
