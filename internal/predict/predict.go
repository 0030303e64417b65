// Package predict runs an optional CNN over generated signatures and
// reports which known signer each one most resembles.
package predict

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/crimson-sun/sigflow/internal/engine/finish"
)

// InputSize is the square side the model was trained on.
const InputSize = 128

// DefaultThreshold is the confidence below which the top class is
// reported as Unknown.
const DefaultThreshold = 0.60

// Unknown is reported in place of a low-confidence top class.
const Unknown = "Unknown"

// openSession is swapped in tests.
var openSession = func(modelPath string) (runner, error) {
	return newONNXSession(modelPath)
}

// runner is the inference backend.
type runner interface {
	run(pixels []float32) ([]float32, error)
	classes() int
	close() error
}

// Prediction is the classifier's verdict on one image.
type Prediction struct {
	Class      string  // top class, or Unknown below the threshold
	Confidence float64 // probability of the top class
	MatchName  string  // input name, when it is a known class
	Match      float64 // probability of MatchName
	HasMatch   bool
}

// String renders the prediction the way it is shown to users, e.g.
// "Pred: Hamza (0.87) • Match(Ahmad)=0.10".
func (p Prediction) String() string {
	s := fmt.Sprintf("Pred: %s (%.2f)", p.Class, p.Confidence)
	if p.HasMatch {
		s += fmt.Sprintf(" • Match(%s)=%.2f", p.MatchName, p.Match)
	}
	return s
}

// Classifier wraps a loaded model and its class labels. Safe for
// concurrent use; inference calls are serialized.
type Classifier struct {
	mu        sync.Mutex
	rt        runner
	classes   []string
	lower     map[string]int
	threshold float64
}

// Load opens the model and its class list. When either file does not
// exist, or the model cannot be loaded by the runtime, the classifier is
// simply not available: Load returns (nil, nil). Only a malformed class
// list or a class count that disagrees with the model is an error.
func Load(modelPath, classesPath string, threshold float64) (*Classifier, error) {
	if !exists(modelPath) || !exists(classesPath) {
		slog.Debug("classifier not configured", "model", modelPath, "classes", classesPath)
		return nil, nil
	}
	f, err := os.Open(classesPath)
	if err != nil {
		return nil, fmt.Errorf("predict: open classes: %w", err)
	}
	defer f.Close()
	classes, err := ReadClasses(f)
	if err != nil {
		return nil, err
	}

	sess, err := openSession(modelPath)
	if err != nil {
		slog.Warn("classifier unavailable", "model", modelPath, "error", err)
		return nil, nil
	}
	if sess.classes() != len(classes) {
		sess.close()
		return nil, fmt.Errorf("predict: model has %d outputs, classes file has %d labels", sess.classes(), len(classes))
	}
	return newClassifier(sess, classes, threshold), nil
}

func newClassifier(rt runner, classes []string, threshold float64) *Classifier {
	c := &Classifier{rt: rt, classes: classes, threshold: threshold, lower: make(map[string]int, len(classes))}
	for i, name := range classes {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := c.lower[key]; !dup {
			c.lower[key] = i
		}
	}
	return c
}

// ReadClasses parses a class list: one label per line, in model output
// order. Blank lines are ignored.
func ReadClasses(r io.Reader) ([]string, error) {
	var classes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			classes = append(classes, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("predict: read classes: %w", err)
	}
	if len(classes) == 0 {
		return nil, errors.New("predict: classes file is empty")
	}
	return classes, nil
}

// Classes returns the label list.
func (c *Classifier) Classes() []string { return c.classes }

// Predict classifies img. inputName, when it names a known class, also
// gets its own probability reported.
func (c *Classifier) Predict(img *image.Gray, inputName string) (Prediction, error) {
	pixels := Pixels(img)

	c.mu.Lock()
	probs, err := c.rt.run(pixels)
	c.mu.Unlock()
	if err != nil {
		return Prediction{}, err
	}
	if len(probs) != len(c.classes) {
		return Prediction{}, fmt.Errorf("predict: got %d probabilities for %d classes", len(probs), len(c.classes))
	}
	return c.verdict(probs, inputName), nil
}

func (c *Classifier) verdict(probs []float32, inputName string) Prediction {
	top := 0
	for i, p := range probs {
		if p > probs[top] {
			top = i
		}
	}
	p := Prediction{Class: c.classes[top], Confidence: float64(probs[top])}
	if p.Confidence < c.threshold {
		p.Class = Unknown
	}
	if i, ok := c.lower[strings.ToLower(strings.TrimSpace(inputName))]; ok {
		p.MatchName = inputName
		p.Match = float64(probs[i])
		p.HasMatch = true
	}
	return p
}

// Close releases the model.
func (c *Classifier) Close() error {
	return c.rt.close()
}

// Pixels resizes img to the model's input size and scales it to [0,1],
// row-major.
func Pixels(img *image.Gray) []float32 {
	if b := img.Bounds(); b.Dx() != InputSize || b.Dy() != InputSize {
		img = finish.Resize(img, InputSize, InputSize)
	}
	out := make([]float32, 0, InputSize*InputSize)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, float32(img.GrayAt(x, y).Y)/255)
		}
	}
	return out
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
