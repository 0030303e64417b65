package sigflow

import (
	"io"
	"path/filepath"
)

type options struct {
	datasetRoot string
	labelsCSV   string
	fontDir     string
	fontCache   int
	outputDir   string
	urlPrefix   string
	logPath     string
	seed        uint64
	uuids       bool
	sqliteDSN   string
	webhookURL  string
	auditEcho   io.Writer
	minio       *minioOptions

	modelPath   string
	classesPath string
	threshold   float64
}

type minioOptions struct {
	endpoint, accessKey, secretKey, bucket string
	useSSL                                 bool
}

// Option configures a Sigflow instance.
type Option func(*options)

// WithDatasetRoot sets the directory holding reference signatures.
// Default: assets/signature_dataset.
func WithDatasetRoot(dir string) Option {
	return func(o *options) { o.datasetRoot = dir }
}

// WithLabelsCSV sets the filename,name table. Default: labels.csv inside
// the dataset root.
func WithLabelsCSV(path string) Option {
	return func(o *options) { o.labelsCSV = path }
}

// WithFontDir sets the directory scanned for .ttf/.otf handwriting fonts.
// A missing or empty directory falls back to a built-in face.
func WithFontDir(dir string) Option {
	return func(o *options) { o.fontDir = dir }
}

// WithFontCache sets how many parsed fonts are kept in memory. Default: 16.
func WithFontCache(n int) Option {
	return func(o *options) { o.fontCache = n }
}

// WithOutputDir sets where PNG artifacts are written. Default: static/output.
func WithOutputDir(dir string) Option {
	return func(o *options) { o.outputDir = dir }
}

// WithURLPrefix sets the prefix of returned references. Default: /static/output.
func WithURLPrefix(prefix string) Option {
	return func(o *options) { o.urlPrefix = prefix }
}

// WithLogPath sets the CSV audit log. Default: generation_log.csv inside
// the output directory.
func WithLogPath(path string) Option {
	return func(o *options) { o.logPath = path }
}

// WithSeed makes generation reproducible. Zero seeds from the clock.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithUUIDs switches request identities from millisecond timestamps to
// UUIDv7 strings.
func WithUUIDs() Option {
	return func(o *options) { o.uuids = true }
}

// WithSQLite mirrors every audit row into a SQLite database at dsn and
// enables History. Mirror failures are logged and never fail a request.
func WithSQLite(dsn string) Option {
	return func(o *options) { o.sqliteDSN = dsn }
}

// WithWebhook posts audit rows in batches to url. Delivery is
// asynchronous and best effort.
func WithWebhook(url string) Option {
	return func(o *options) { o.webhookURL = url }
}

// WithAuditEcho writes every audit row to w as a JSON line.
func WithAuditEcho(w io.Writer) Option {
	return func(o *options) { o.auditEcho = w }
}

// WithMinIO copies every artifact to an S3-compatible bucket. Upload
// failures are logged and never fail a request.
func WithMinIO(endpoint, accessKey, secretKey, bucket string, useSSL bool) Option {
	return func(o *options) {
		o.minio = &minioOptions{endpoint, accessKey, secretKey, bucket, useSSL}
	}
}

// WithModel enables Predict with an ONNX classifier and its class list
// (one label per line). Missing files, or a model the runtime cannot
// load, leave the classifier disabled.
func WithModel(modelPath, classesPath string) Option {
	return func(o *options) {
		o.modelPath = modelPath
		o.classesPath = classesPath
	}
}

// WithConfidenceThreshold sets the minimum top-class probability below
// which Predict reports Unknown. Default: 0.60.
func WithConfidenceThreshold(t float64) Option {
	return func(o *options) { o.threshold = t }
}

func defaultOptions() options {
	return options{
		datasetRoot: filepath.Join("assets", "signature_dataset"),
		fontDir:     filepath.Join("assets", "fonts"),
		fontCache:   16,
		outputDir:   filepath.Join("static", "output"),
		urlPrefix:   "/static/output",
		threshold:   0.60,
	}
}

// resolvePaths fills the paths that default relative to other options.
func resolvePaths(o *options) {
	if o.labelsCSV == "" {
		o.labelsCSV = filepath.Join(o.datasetRoot, "labels.csv")
	}
	if o.logPath == "" {
		o.logPath = filepath.Join(o.outputDir, "generation_log.csv")
	}
}
