// build.go - qPCR ΔΔCt Build System
// Usage: go run build.go [-target=TARGET]
// Targets: all, cli, web, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	version = "0.3.0"
	module  = "qpcrcli"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	GOOS    string
	GOARCH  string
}

var (
	rootDir string
	distDir string

	// Executable names (key = source dir name under cmd/, value = binary name)
	executables = map[string]string{
		"ddct":     "ddct",
		"ddct-web": "ddct-web",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	goos := flag.String("os", runtime.GOOS, "Target operating system")
	goarch := flag.String("arch", runtime.GOARCH, "Target architecture")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		printError(fmt.Sprintf("Failed to get current directory: %v", err))
		os.Exit(1)
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{Verbose: *verbose, GOOS: *goos, GOARCH: *goarch}

	switch *target {
	case "all":
		buildAll(ctx)
	case "cli":
		buildExecutable("ddct", ctx)
	case "web":
		buildExecutable("ddct-web", ctx)
	case "clean":
		clean()
	case "test":
		runTests(ctx.Verbose)
	case "release":
		buildRelease(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        qPCR ΔΔCt - Build System           " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

// Build all executables
func buildAll(ctx *BuildContext) {
	printInfo("Building all components...")
	for name := range executables {
		buildExecutable(name, ctx)
	}
	copyConfigFiles()
	printSuccess("All components built successfully!")
}

// ldflags stamps the build time and commit into pkg/contracts
func ldflags() string {
	flags := fmt.Sprintf("-s -w -X %s/pkg/contracts.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339))
	if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		flags += fmt.Sprintf(" -X %s/pkg/contracts.GitCommit=%s", module, strings.TrimSpace(string(out)))
	}
	return flags
}

func buildExecutable(name string, ctx *BuildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	if ctx.GOOS == "windows" {
		exeName += ".exe"
	}

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create %s: %v", distDir, err))
		os.Exit(1)
	}
	outputPath := filepath.Join(distDir, exeName)

	args := []string{"build"}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags(), "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH)
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
}

func clean() {
	printInfo("Cleaning build artifacts and logs...")
	for _, dir := range []string{distDir, filepath.Join(rootDir, "logs")} {
		if err := os.RemoveAll(dir); err != nil {
			printError(fmt.Sprintf("Failed to clean %s: %v", dir, err))
		}
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

// Build release version: clean tree, every binary, VERSION.txt
func buildRelease(ctx *BuildContext) {
	printInfo("Building release version...")
	clean()
	buildAll(ctx)

	versionFile := filepath.Join(distDir, "VERSION.txt")
	content := fmt.Sprintf("qPCR ΔΔCt v%s\nBuilt: %s\nPlatform: %s/%s\n",
		version, time.Now().Format("2006-01-02 15:04:05"), ctx.GOOS, ctx.GOARCH)
	if err := os.WriteFile(versionFile, []byte(content), 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to write %s: %v", versionFile, err))
	}
	printSuccess("Release build completed")
}

// copyConfigFiles ships the example config next to the binaries
func copyConfigFiles() {
	src := filepath.Join(rootDir, "configs", "config.example.yaml")
	data, err := os.ReadFile(src)
	if err != nil {
		printWarning(fmt.Sprintf("No example config copied: %v", err))
		return
	}
	if err := os.WriteFile(filepath.Join(distDir, "config.example.yaml"), data, 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to copy config: %v", err))
	}
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-os=GOOS] [-arch=GOARCH]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all        Build ddct and ddct-web (default)")
	fmt.Println("  cli        Build the ddct command line tool")
	fmt.Println("  web        Build the ddct-web HTTP server")
	fmt.Println("  clean      Remove dist/ and logs/")
	fmt.Println("  test       Run all Go tests with -race")
	fmt.Println("  release    Clean, build everything, write VERSION.txt")
}
