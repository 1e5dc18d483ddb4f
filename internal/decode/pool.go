// Package decode converts face-image files into displayable bitmaps off the
// UI loop, with bounded concurrency and FIFO dispatch.
package decode

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	// Face sets mix jpeg/png with the occasional bmp or tiff; register all of
	// the decoders image.Decode may need.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/facedeck/facedeck/internal/domain"
)

const queueCapacity = 1024

// Job is one decode request.
type Job struct {
	Identity string
	Path     string
}

// Result is the outcome of one decode job. Each job is independent: a failed
// decode carries Err and affects no sibling job.
type Result struct {
	Identity string
	Image    image.Image
	Err      error
}

// Pool runs decode jobs on a fixed set of workers. Jobs queue in arrival
// order and dispatch FIFO as workers free up; there is no priority
// reordering. Teardown abandons queued jobs and discards results that have
// not yet been delivered.
type Pool struct {
	logger  *slog.Logger
	queue   chan Job
	results chan Result
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewPool starts a pool with the given number of decode workers.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		logger:  logger,
		queue:   make(chan Job, queueCapacity),
		results: make(chan Result, queueCapacity),
		quit:    make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues a decode job. Returns ErrPoolClosed after Close.
func (p *Pool) Submit(identity, path string) error {
	select {
	case <-p.quit:
		return domain.ErrPoolClosed
	default:
	}

	select {
	case p.queue <- Job{Identity: identity, Path: path}:
		return nil
	case <-p.quit:
		return domain.ErrPoolClosed
	}
}

// Results delivers decode outcomes. The channel is closed once Close has run
// and all workers have stopped.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close tears the pool down. Outstanding jobs are abandoned; results that
// were in progress are discarded rather than delivered to a defunct caller.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
	close(p.results)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.queue:
			res := p.decode(job)
			select {
			case p.results <- res:
			case <-p.quit:
				return
			}
		}
	}
}

// decode reads and decodes one image file.
func (p *Pool) decode(job Job) Result {
	f, err := os.Open(job.Path)
	if err != nil {
		return Result{Identity: job.Identity, Err: fmt.Errorf("open %s: %w", job.Path, err)}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		p.logger.Debug("decode failed", "identity", job.Identity, "error", err)
		return Result{Identity: job.Identity, Err: fmt.Errorf("decode %s: %w", job.Path, err)}
	}
	return Result{Identity: job.Identity, Image: img}
}
