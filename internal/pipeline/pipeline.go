package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/crimson-sun/sigflow/internal/dataset"
	"github.com/crimson-sun/sigflow/internal/engine/finish"
	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/output"
	"github.com/crimson-sun/sigflow/internal/output/artifact"
	"github.com/crimson-sun/sigflow/internal/output/multi"
	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/raster"
)

var tracer = otel.Tracer("sigflow/pipeline")

// Resolver turns a name and mode into three signatures.
type Resolver interface {
	Resolve(name string, mode model.Mode, rng random.Source) model.Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIDs sets the request identity scheme. Default: SharedMillisIDs.
func WithIDs(ids IDAllocator) Option {
	return func(p *Pipeline) { p.ids = ids }
}

// WithClock overrides the time source used for identities and audit rows.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRand sets the random source handed to the resolver. It is wrapped
// for concurrent use.
func WithRand(src random.Source) Option {
	return func(p *Pipeline) { p.rng = random.Locked(src) }
}

// WithMirrors adds best-effort audit sinks. They receive the three rows
// of a request after the canonical log has accepted them; their failures
// are logged and never fail the request.
func WithMirrors(sinks ...output.AuditSink) Option {
	return func(p *Pipeline) { p.mirrors = multi.New(append(p.mirrors.Sinks(), sinks...)...) }
}

// WithReplicas adds best-effort artifact copies (e.g. an object bucket).
// They run after the request lock is released.
func WithReplicas(stores ...artifact.Store) Option {
	return func(p *Pipeline) { p.replicas = append(p.replicas, stores...) }
}

// Generation is the full outcome of one request.
type Generation struct {
	RequestID string
	InputName string
	Source    model.Source
	Fallback  bool
	Artifacts [model.SlotCount]model.Artifact
	Records   [model.SlotCount]model.AuditRecord
}

// Refs returns the artifact references in slot order.
func (g Generation) Refs() []string {
	refs := make([]string, len(g.Artifacts))
	for i, a := range g.Artifacts {
		refs[i] = a.Ref
	}
	return refs
}

// Pipeline connects a resolver, an artifact store and the canonical audit
// sink. Identity allocation, artifact writes and canonical audit appends of
// one request happen under a single lock, so concurrent requests never
// interleave. Only those two may fail a request.
type Pipeline struct {
	resolver Resolver
	store    artifact.Store
	audit    output.AuditSink
	mirrors  *multi.Multi
	replicas []artifact.Store
	ids      IDAllocator
	now      func() time.Time
	rng      random.Source

	mu sync.Mutex
}

// New creates a Pipeline from the given components.
func New(resolver Resolver, store artifact.Store, audit output.AuditSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		store:    store,
		audit:    audit,
		mirrors:  multi.New(),
		ids:      SharedMillisIDs(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = random.Locked(random.New(0))
	}
	return p
}

// Synthesize generates three signatures for name and returns their
// references in slot order.
func (p *Pipeline) Synthesize(ctx context.Context, name string, mode model.Mode) ([]string, error) {
	g, err := p.Generate(ctx, name, mode)
	if err != nil {
		return nil, err
	}
	return g.Refs(), nil
}

// Generate is Synthesize with the request identity and per-slot
// provenance returned as well.
func (p *Pipeline) Generate(ctx context.Context, name string, mode model.Mode) (Generation, error) {
	ctx, span := tracer.Start(ctx, "pipeline_generate")
	defer span.End()
	span.SetAttributes(attribute.String("sigflow.mode", string(mode)))

	name = strings.TrimSpace(name)
	res := p.resolver.Resolve(name, mode, p.rng)
	rasters, missing := p.rasters(res)

	g, err := p.commit(ctx, name, res, rasters, missing)
	span.SetAttributes(
		attribute.String("sigflow.request_id", g.RequestID),
		attribute.String("sigflow.source", string(res.Source)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		return g, err
	}

	p.replicate(ctx, g, rasters)
	p.mirror(ctx, g)

	slog.Debug("signatures generated",
		"request_id", g.RequestID, "source", g.Source, "fallback", g.Fallback)
	return g, nil
}

// commit allocates the identity, stores all three artifacts and then
// appends their canonical audit rows. No row is written unless every
// artifact was stored; a failing row does not stop the remaining ones.
func (p *Pipeline) commit(ctx context.Context, name string, res model.Result, rasters [model.SlotCount]image.Image, missing [model.SlotCount]bool) (Generation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	g := Generation{
		RequestID: p.ids.Next(now),
		InputName: name,
		Source:    res.Source,
		Fallback:  res.Fallback,
	}

	for i := range model.SlotCount {
		a := model.Artifact{
			Slot:          i + 1,
			Name:          model.ArtifactName(g.RequestID, i+1),
			SourceMissing: missing[i],
		}
		ref, err := p.store.Put(ctx, a.Name, rasters[i])
		if err != nil {
			return g, fmt.Errorf("pipeline: store %s: %w", a.Name, err)
		}
		a.Ref = ref
		g.Artifacts[i] = a
	}

	var errs []error
	for i := range model.SlotCount {
		g.Records[i] = record(now, g, res, i)
		if err := p.audit.Write(ctx, g.Records[i]); err != nil {
			errs = append(errs, fmt.Errorf("pipeline: audit %s: %w", g.Artifacts[i].Name, err))
		}
	}
	return g, errors.Join(errs...)
}

func (p *Pipeline) replicate(ctx context.Context, g Generation, rasters [model.SlotCount]image.Image) {
	for _, r := range p.replicas {
		for i, a := range g.Artifacts {
			if _, err := r.Put(ctx, a.Name, rasters[i]); err != nil {
				slog.Warn("artifact replica failed",
					"request_id", g.RequestID, "name", a.Name, "error", err)
			}
		}
	}
}

func (p *Pipeline) mirror(ctx context.Context, g Generation) {
	if p.mirrors.Len() == 0 {
		return
	}
	for _, rec := range g.Records {
		if err := p.mirrors.Write(ctx, rec); err != nil {
			slog.Warn("audit mirror write failed",
				"request_id", rec.RequestID, "sample_index", rec.SampleIndex, "error", err)
		}
	}
}

// Close shuts down the canonical sink and every mirror.
func (p *Pipeline) Close() error {
	return errors.Join(p.audit.Close(), p.mirrors.Close())
}

// rasters materializes the three images of res. Dataset files that cannot
// be read are replaced by a blank canonical raster and flagged.
func (p *Pipeline) rasters(res model.Result) (imgs [model.SlotCount]image.Image, missing [model.SlotCount]bool) {
	if res.Source != model.SourceDataset {
		for i, s := range res.Slots {
			imgs[i] = s.Raster
		}
		return imgs, missing
	}
	for i, path := range res.Paths {
		img, err := dataset.LoadGray(path)
		if err != nil {
			slog.Warn("dataset sample unreadable, writing blank", "path", path, "error", err)
			img = raster.Blank(finish.Size, finish.Size)
			missing[i] = true
		}
		imgs[i] = img
	}
	return imgs, missing
}

func record(now time.Time, g Generation, res model.Result, i int) model.AuditRecord {
	rec := model.AuditRecord{
		Timestamp:   now,
		RequestID:   g.RequestID,
		InputName:   g.InputName,
		Mode:        res.Source,
		SampleIndex: i + 1,
		OutputFile:  g.Artifacts[i].Name,
	}
	if res.Source == model.SourceDataset {
		rec.SourcePath = res.Paths[i]
	} else {
		rec.TextForm = res.Slots[i].Text
		rec.FontFile = model.FontFileName(res.Slots[i].Font)
	}
	return rec
}
