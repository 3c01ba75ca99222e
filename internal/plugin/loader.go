// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("widgetdeck/plugin")

// DefaultManifestFile is the manifest file name inside a plugin folder.
const DefaultManifestFile = "config.json"

// Loader resolves plugin names into descriptors. Every name owns the slot at
// its discovery index, so the published list keeps discovery order however
// the concurrent loads complete.
type Loader struct {
	src          Source
	surface      Surface
	manifestFile string
	attempts     uint64
	retryBase    time.Duration
	validate     bool
	logger       *slog.Logger

	mu         sync.Mutex
	generation uint64
	slots      []*Descriptor
	published  []*Descriptor
	observers  map[int]func([]*Descriptor)
	nextID     int
	closed     bool

	// publishMu serialises commits so observers see lists in commit order
	// while mu stays free for calls made from inside an observer.
	publishMu sync.Mutex
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSurface selects where plugin folders live. Defaults to SurfaceWeb.
func WithSurface(s Surface) LoaderOption {
	return func(l *Loader) {
		l.surface = s
	}
}

// WithManifestFile overrides DefaultManifestFile.
func WithManifestFile(name string) LoaderOption {
	return func(l *Loader) {
		l.manifestFile = name
	}
}

// WithRetry retries failed fetches with exponential backoff starting at base.
// attempts counts the first try; values below 2 disable retrying.
func WithRetry(attempts uint64, base time.Duration) LoaderOption {
	return func(l *Loader) {
		l.attempts = attempts
		l.retryBase = base
	}
}

// WithSchemaValidation holds every manifest to CheckConventions and
// GenerateSchema. Without it only the checks of ParseManifest apply.
func WithSchemaValidation() LoaderOption {
	return func(l *Loader) {
		l.validate = true
	}
}

// WithLogger sets the logger used for skipped plugins.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader reading from src.
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		src:          src,
		surface:      SurfaceWeb,
		manifestFile: DefaultManifestFile,
		attempts:     1,
		retryBase:    50 * time.Millisecond,
		observers:    make(map[int]func([]*Descriptor)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Subscribe registers fn to receive every published list. Calls are made in
// publication order, one at a time. The returned func unsubscribes.
//
// fn runs while the loader holds its publication lock. It may call
// Descriptors, Subscribe, Close or the unsubscribe func, but it must not call
// LoadAll directly: LoadAll waits for commits that cannot proceed until fn
// returns, so the call never completes. Start the reload on its own goroutine
// instead.
func (l *Loader) Subscribe(fn func([]*Descriptor)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.observers[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers, id)
	}
}

// Descriptors returns the most recently published list.
func (l *Loader) Descriptors() []*Descriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Descriptor(nil), l.published...)
}

// Close releases the loader. Loads finishing afterwards are dropped and
// nothing more is published.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.observers = make(map[int]func([]*Descriptor))
}

// LoadAll resolves names concurrently and returns the final published list.
// Calling it again starts a fresh list; stragglers from an earlier call are
// discarded.
func (l *Loader) LoadAll(ctx context.Context, names []string) []*Descriptor {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.generation++
	gen := l.generation
	l.slots = make([]*Descriptor, len(names))
	l.published = nil
	l.mu.Unlock()

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Go(func() {
			l.loadSlot(ctx, gen, i, name)
		})
	}
	wg.Wait()

	return l.Descriptors()
}

func (l *Loader) loadSlot(ctx context.Context, gen uint64, slot int, name string) {
	ctx, span := tracer.Start(ctx, "plugin.load",
		trace.WithAttributes(
			attribute.String("plugin.name", name),
			attribute.Int("plugin.slot", slot),
		),
	)
	defer span.End()

	desc, err := l.resolve(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		pluginLoads.WithLabelValues(resultFailed).Inc()
		l.logger.WarnContext(ctx, "skipping plugin", "plugin", name, "error", err)
		return
	}
	l.commit(ctx, gen, slot, desc)
}

// commit stores desc in its slot and publishes. Of two descriptors sharing a
// name the one in the lower slot wins, whichever finished first.
func (l *Loader) commit(ctx context.Context, gen uint64, slot int, desc *Descriptor) {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	l.mu.Lock()
	if l.closed || gen != l.generation || ctx.Err() != nil {
		l.mu.Unlock()
		pluginLoads.WithLabelValues(resultDiscarded).Inc()
		return
	}

	for i, existing := range l.slots {
		if existing == nil || existing.Name != desc.Name {
			continue
		}
		if i < slot {
			l.mu.Unlock()
			pluginLoads.WithLabelValues(resultDuplicate).Inc()
			l.logger.DebugContext(ctx, "dropping duplicate plugin", "plugin", desc.Name, "slot", slot, "kept_slot", i)
			return
		}
		l.slots[i] = nil
		pluginLoads.WithLabelValues(resultDuplicate).Inc()
		l.logger.DebugContext(ctx, "dropping duplicate plugin", "plugin", desc.Name, "slot", i, "kept_slot", slot)
	}
	l.slots[slot] = desc
	pluginLoads.WithLabelValues(resultLoaded).Inc()

	visible := make([]*Descriptor, 0, len(l.slots))
	for _, d := range l.slots {
		if d != nil {
			visible = append(visible, d)
		}
	}
	l.published = visible
	observers := make([]func([]*Descriptor), 0, len(l.observers))
	for _, fn := range l.observers {
		observers = append(observers, fn)
	}

	l.mu.Unlock()

	for _, fn := range observers {
		fn(append([]*Descriptor(nil), visible...))
	}
}

func (l *Loader) resolve(ctx context.Context, name string) (*Descriptor, error) {
	dir := l.surface.pluginDir(name)
	data, err := l.fetch(ctx, path.Join(dir, l.manifestFile))
	if err != nil {
		return nil, err
	}

	cfg, err := ParseManifest(data)
	if err != nil {
		return nil, oops.With("plugin", name).Wrap(err)
	}
	if l.validate {
		if err := CheckConventions(cfg); err != nil {
			return nil, oops.With("plugin", name).Wrap(err)
		}
		if err := ValidateSchema(cfg); err != nil {
			return nil, oops.With("plugin", name).Wrap(err)
		}
	}

	desc := &Descriptor{Name: cfg["name"].(string), Config: cfg}
	if ref := desc.IconRef(); ref != "" {
		icon, err := l.loadIcon(ctx, dir, ref)
		if err != nil {
			iconFailures.Inc()
			l.logger.WarnContext(ctx, "plugin icon unavailable", "plugin", name, "icon", ref, "error", err)
		} else {
			desc.Icon = icon
		}
	}
	return desc, nil
}

func (l *Loader) loadIcon(ctx context.Context, dir, ref string) (*Icon, error) {
	if isIconURL(ref) {
		return &Icon{URL: ref}, nil
	}

	p := path.Join(dir, strings.TrimPrefix(ref, "./"))
	if !strings.HasPrefix(p, dir+"/") {
		return nil, oops.Code(CodeIconUnavailable).With("icon", ref).Errorf("icon escapes the plugin folder")
	}
	data, err := l.fetch(ctx, p)
	if err != nil {
		return nil, oops.Code(CodeIconUnavailable).With("icon", ref).Wrap(err)
	}

	mediaType := mime.TypeByExtension(path.Ext(p))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return &Icon{Data: data, MediaType: mediaType}, nil
}

func isIconURL(ref string) bool {
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}

// fetch loads an asset, retrying transient failures when WithRetry is set.
// Missing files, empty documents and cancellation are not retried.
func (l *Loader) fetch(ctx context.Context, p string) ([]byte, error) {
	load := func(ctx context.Context) ([]byte, error) {
		data, err := l.src.Load(ctx, p)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, oops.Code(CodeManifestEmpty).With("path", p).Errorf("asset is empty")
		}
		return data, nil
	}

	if l.attempts < 2 {
		return load(ctx)
	}

	var data []byte
	backoff := retry.WithMaxRetries(l.attempts-1, retry.NewExponential(l.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d, err := load(ctx)
		if err == nil {
			data = d
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) || ctx.Err() != nil || isCode(err, CodeManifestEmpty) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
