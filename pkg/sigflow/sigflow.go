package sigflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/crimson-sun/sigflow/internal/dataset"
	"github.com/crimson-sun/sigflow/internal/engine"
	"github.com/crimson-sun/sigflow/internal/engine/glyph"
	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/output"
	"github.com/crimson-sun/sigflow/internal/output/artifact"
	"github.com/crimson-sun/sigflow/internal/output/async"
	"github.com/crimson-sun/sigflow/internal/output/file"
	"github.com/crimson-sun/sigflow/internal/output/sqlite"
	"github.com/crimson-sun/sigflow/internal/output/stdout"
	"github.com/crimson-sun/sigflow/internal/output/webhook"
	"github.com/crimson-sun/sigflow/internal/pipeline"
	"github.com/crimson-sun/sigflow/internal/predict"
	"github.com/crimson-sun/sigflow/internal/random"
	"github.com/crimson-sun/sigflow/internal/storage/minio"
)

// ErrNoHistory is returned by History when no SQLite mirror is configured.
var ErrNoHistory = errors.New("sigflow: history requires WithSQLite")

// Sigflow generates signature artifacts. Safe for concurrent use.
type Sigflow struct {
	pipeline   *pipeline.Pipeline
	dir        *artifact.Dir
	history    *sqlite.Store
	classifier *predict.Classifier
}

// New builds the dataset index, font pool, artifact store and audit
// sinks. A missing dataset or font directory is not an error: generation
// degrades to procedural rendering with the built-in face.
func New(opts ...Option) (*Sigflow, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	resolvePaths(&o)

	index := dataset.Load(o.datasetRoot, o.labelsCSV)
	fonts := glyph.LoadFonts(o.fontDir, o.fontCache)
	eng := engine.New(index, glyph.NewRenderer(fonts, 0, 0))

	dir := artifact.NewDir(o.outputDir, o.urlPrefix)
	var popts []pipeline.Option
	if o.minio != nil {
		client, err := minio.NewClient(o.minio.endpoint, o.minio.accessKey, o.minio.secretKey, o.minio.bucket, o.minio.useSSL)
		if err != nil {
			return nil, fmt.Errorf("sigflow: %w", err)
		}
		popts = append(popts, pipeline.WithReplicas(minio.NewMirror(client)))
	}

	cls, err := predict.Load(o.modelPath, o.classesPath, o.threshold)
	if err != nil {
		return nil, fmt.Errorf("sigflow: %w", err)
	}

	s := &Sigflow{dir: dir, classifier: cls}
	var mirrors []output.AuditSink
	if o.sqliteDSN != "" {
		db, err := sqlite.Open(o.sqliteDSN)
		if err != nil {
			if cls != nil {
				cls.Close()
			}
			return nil, fmt.Errorf("sigflow: %w", err)
		}
		s.history = db
		mirrors = append(mirrors, db)
	}
	if o.webhookURL != "" {
		mirrors = append(mirrors, async.New(webhook.New(o.webhookURL), async.WithDropOnFull()))
	}
	if o.auditEcho != nil {
		mirrors = append(mirrors, stdout.New(stdout.WithWriter(o.auditEcho)))
	}

	var ids pipeline.IDAllocator = pipeline.SharedMillisIDs()
	if o.uuids {
		ids = pipeline.UUIDs{}
	}
	popts = append(popts,
		pipeline.WithIDs(ids),
		pipeline.WithRand(random.New(o.seed)),
		pipeline.WithMirrors(mirrors...),
	)
	s.pipeline = pipeline.New(eng, dir, file.New(o.logPath), popts...)

	slog.Debug("sigflow ready",
		"dataset_names", index.Len(), "fonts", fonts.Len(),
		"classifier", cls != nil, "log", o.logPath)
	return s, nil
}

// Synthesize generates three signatures for name and returns their
// references in slot order.
func (s *Sigflow) Synthesize(name, mode string) ([]string, error) {
	return s.pipeline.Synthesize(context.Background(), name, model.ParseMode(mode))
}

// SynthesizeContext is Synthesize with a caller context, used for
// tracing and for cancelling remote audit or mirror writes.
func (s *Sigflow) SynthesizeContext(ctx context.Context, name, mode string) ([]string, error) {
	return s.pipeline.Synthesize(ctx, name, model.ParseMode(mode))
}

// SynthesizeDetailed is Synthesize returning identity and provenance.
func (s *Sigflow) SynthesizeDetailed(ctx context.Context, name, mode string) (Generation, error) {
	g, err := s.pipeline.Generate(ctx, name, model.ParseMode(mode))
	if err != nil {
		return Generation{}, err
	}
	return generationFromPipeline(g), nil
}

// HasClassifier reports whether Predict has a model to run.
func (s *Sigflow) HasClassifier() bool { return s.classifier != nil }

// Predict classifies previously returned references. The result has one
// line per ref, e.g. "Pred: Hamza (0.87) • Match(Ahmad)=0.10", or "N/A"
// for an artifact that cannot be read. Without a classifier it returns nil.
func (s *Sigflow) Predict(refs []string, name string) []string {
	if s.classifier == nil {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = "N/A"
		img, err := dataset.LoadGray(s.dir.Path(path.Base(ref)))
		if err != nil {
			slog.Warn("predict: artifact unreadable", "ref", ref, "error", err)
			continue
		}
		p, err := s.classifier.Predict(img, name)
		if err != nil {
			slog.Warn("predict failed", "ref", ref, "error", err)
			continue
		}
		out[i] = p.String()
	}
	return out
}

// History returns every audit row recorded for name, oldest first.
func (s *Sigflow) History(ctx context.Context, name string) ([]Record, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	rows, err := s.history.ByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = recordFromAudit(r)
	}
	return out, nil
}

// Close flushes audit sinks and releases the classifier.
func (s *Sigflow) Close() error {
	err := s.pipeline.Close()
	if s.classifier != nil {
		err = errors.Join(err, s.classifier.Close())
	}
	return err
}
