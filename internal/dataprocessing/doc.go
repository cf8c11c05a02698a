// Package dataprocessing is the input boundary of the ΔΔCt tool. It reads
// one sheet of a plate-reader export into a ddct.Table: the first row gives
// the column names, every following row is kept as cell text.
//
// # Formats
//
// Workbooks (.xlsx, .xlsm) are read with excelize using raw cell values, so a
// Cq stored as 18.257 with a two-decimal display format still loads as
// 18.257. CSV files (.csv) are read as UTF-8 with an optional BOM.
//
// # Sheet selection
//
//	sel := dataprocessing.ParseSheetSelector("Results") // by name
//	sel = dataprocessing.ParseSheetSelector("1")        // second sheet
//	table, err := dataprocessing.ReadTable("run.xlsx", sel)
//
// CSV inputs have a single table and ignore the selector.
package dataprocessing
