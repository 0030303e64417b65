// Package sigflow synthesizes signature images for a name. Each request
// yields exactly three 128×128 grayscale PNG artifacts, sampled from a
// labeled reference dataset or rendered procedurally from handwriting
// fonts, and appends one audit row per artifact to a CSV log.
//
// Quick start:
//
//	s, err := sigflow.New(
//	    sigflow.WithDatasetRoot("assets/signature_dataset"),
//	    sigflow.WithFontDir("assets/fonts"),
//	    sigflow.WithOutputDir("static/output"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	refs, _ := s.Synthesize("Ali Khan", "hybrid")
//	fmt.Println(refs) // [/static/output/sig_..._1.png ...]
//
// Modes are "dataset", "procedural" and "hybrid"; anything else is
// treated as hybrid. A Sigflow is safe for concurrent use.
package sigflow
