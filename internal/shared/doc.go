// Package shared holds helpers used by several packages of the ΔΔCt tool
// without belonging to any of them.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - plate fixtures: a standard plate layout and a workbook writer for it
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WritePlateWorkbook(t, t.TempDir(), "plate.xlsx", "Results", testutil.MinimalPlate())
//	    // run code under test with logger and path
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
