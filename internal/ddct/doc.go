// Package ddct implements the relative-quantification engine for qPCR runs.
//
// A run is a pure function of one input table and one Options value. The
// stages are applied in a fixed order, each one taking the previous stage's
// wells and returning a fresh slice:
//
//	Table → Load → Classify → OutlierFilter → Compute → WellTable / SampleTable
//
// # Classification
//
// Wells are marked as control and/or reference-gene rows by two independent
// Matchers. The default matcher is a regular expression searched anywhere in
// the cell text, so a pattern like "CTR" also matches "PRE-CTR-1". Anchor the
// pattern ("^CTR") when only a prefix should count.
//
// # Baseline
//
// ΔCt is relative to the mean Cq of the reference-gene wells of the same
// Sample. The control baseline of a gene is the mean over control Samples of
// each Sample's mean ΔCt, so every control Sample carries the same weight no
// matter how many replicate wells it has.
//
// # Errors
//
// Every failure is terminal and returned as one of the typed errors in
// errors.go. They can be matched with errors.Is against the Err* sentinels or
// unpacked with errors.As to get the offending columns, samples or genes.
//
// Usage:
//
//	opts := ddct.DefaultOptions()
//	opts.ControlPattern = "^CTR"
//	opts.ReferencePattern = "ACTB|B[-_ ]?ACTIN"
//	res, err := ddct.Run(table, opts)
//	if err != nil {
//	    return err
//	}
//	for _, w := range res.Wells {
//	    fmt.Println(w.Gene, w.Sample, w.FoldChange)
//	}
package ddct
