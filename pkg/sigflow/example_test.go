package sigflow_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/crimson-sun/sigflow/pkg/sigflow"
)

func Example() {
	dir, err := os.MkdirTemp("", "sigflow-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := sigflow.New(
		sigflow.WithDatasetRoot(filepath.Join(dir, "dataset")),
		sigflow.WithFontDir(filepath.Join(dir, "fonts")),
		sigflow.WithOutputDir(filepath.Join(dir, "output")),
		sigflow.WithSeed(1),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	refs, err := s.Synthesize("Ali Khan", "hybrid")
	if err != nil {
		log.Fatal(err)
	}

	ref := regexp.MustCompile(`^/static/output/sig_\d+_[123]\.png$`)
	for _, r := range refs {
		fmt.Println(ref.MatchString(r))
	}
	// Output:
	// true
	// true
	// true
}
