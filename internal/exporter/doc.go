// Package exporter is the output boundary of the ΔΔCt tool. It writes the
// named result tables ("well", "sample" and optionally "outliers") either as
// sheets of one .xlsx workbook or as one UTF-8 CSV file per table.
//
// WorkbookWriter: one sheet per table with a bold header row. Numbers are
// stored as numbers. The file is written to a temporary name and renamed
// when complete, so a failed run never leaves a half-written workbook.
//
// CSVWriter: "<stem>_<table>.csv" for every table, with a UTF-8 BOM so
// Excel shows the Δ headers correctly.
//
// Example usage:
//
//	w, err := exporter.NewWriter(exporter.FormatXLSX, logger)
//	if err != nil {
//	    return err
//	}
//	out := exporter.DefaultOutputPath("/data/run.xlsx", w.Format())
//	files, err := w.Write(out, result.Tables())
package exporter
