package zeroshot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/logger"
)

// DefaultInitTimeout bounds one classifier build.
const DefaultInitTimeout = 30 * time.Second

// Factory builds a ready-to-use classifier.
type Factory func(ctx context.Context) (Classifier, error)

// Lazy defers building a classifier until the first Classify call. Concurrent
// first calls share one build, which runs detached from any single caller's
// cancellation. A failed build is not remembered, so the next call tries again.
type Lazy struct {
	factory     Factory
	group       singleflight.Group
	initTimeout time.Duration

	mu sync.RWMutex
	c  Classifier
}

// NewLazy wraps factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory, initTimeout: DefaultInitTimeout}
}

// Get returns the shared classifier, building it if needed.
func (l *Lazy) Get(ctx context.Context) (Classifier, error) {
	l.mu.RLock()
	c := l.c
	l.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	ch := l.group.DoChan("classifier", func() (any, error) {
		l.mu.RLock()
		existing := l.c
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.initTimeout)
		defer cancel()
		built, err := l.factory(bctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.c = built
		l.mu.Unlock()
		return built, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.ClassifierError{Stage: "init", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, apperrors.ClassifierError{Stage: "init", Err: res.Err}
		}
		return res.Val.(Classifier), nil
	}
}

// Ready reports whether the classifier has been built.
func (l *Lazy) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.c != nil
}

// Classify implements Classifier.
func (l *Lazy) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	c, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, text, labels)
}

// HTTPFactory returns a Factory that builds an HTTPClient and checks the
// service answers /health before handing it out.
func HTTPFactory(baseURL string, opts ClientOptions) Factory {
	return func(ctx context.Context) (Classifier, error) {
		client := NewHTTPClient(baseURL, opts)
		version, err := client.Health(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Zero-shot classifier ready", "url", baseURL, "model_version", version)
		return client, nil
	}
}
