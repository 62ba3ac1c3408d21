package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/QEStudios/ModRecover/parser"
	"github.com/QEStudios/ModRecover/parser/format"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var logger *log.Logger

type options struct {
	subsong    uint8
	dump       bool
	patterns   bool
	samplesDir string
}

// decoded is the outcome for one input file.
type decoded struct {
	path   string
	result *format.Result
	err    error
}

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var opts options
	pflag.Uint8VarP(&opts.subsong, "subsong", "s", 0, "subsong index")
	pflag.BoolVarP(&opts.dump, "dump", "d", false, "dump the decoded result structure")
	pflag.BoolVarP(&opts.patterns, "patterns", "p", false, "print every pattern, not just the song summary")
	pflag.StringVarP(&opts.samplesDir, "samples", "o", "", "directory to export instrument samples to as WAV files")
	pflag.Parse()

	paths, err := choosePaths(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("User cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	logger.Printf("Decoding subsong %d of %d file(s)", opts.subsong, len(paths))
	results := decodeAll(paths, opts.subsong)

	failed := 0
	for i, d := range results {
		if i > 0 {
			fmt.Println(ruler())
		}
		if d.err != nil {
			failed++
			logger.Printf("%s: %v", d.path, d.err)
			continue
		}
		if err := report(d, opts); err != nil {
			failed++
			logger.Printf("%s: %v", d.path, err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// decodeAll reads and decodes every file concurrently. Results keep the
// order of paths; a failing file does not stop the others.
func decodeAll(paths []string, subsong uint8) []decoded {
	p := parser.NewParser(logger)
	results := make([]decoded, len(paths))

	var g errgroup.Group
	g.SetLimit(4)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i].path = path
			data, err := os.ReadFile(path)
			if err != nil {
				results[i].err = fmt.Errorf("error reading file: %w", err)
				return nil
			}
			results[i].result, results[i].err = p.Parse(data, filepath.Base(path), subsong)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func report(d decoded, opts options) error {
	res := d.result
	logger.Printf("%s: %s module, %d subsong(s)", d.path, res.Format, res.SubSongs)

	if opts.dump {
		fmt.Println(parser.Dump(res))
	}
	if opts.patterns {
		fmt.Println(res.Song)
	} else {
		fmt.Println(res.Song.Summary())
	}

	if opts.samplesDir == "" {
		return nil
	}
	n, err := exportSamples(res, opts.samplesDir)
	if err != nil {
		return fmt.Errorf("sample export error: %w", err)
	}
	logger.Printf("Wrote %d sample(s) to %s", n, opts.samplesDir)
	return nil
}

// exportSamples writes every instrument that has sample data to dir as
// <song>_<instrument>.wav and returns how many files were written.
func exportSamples(res *format.Result, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	written := 0
	for i := range res.Song.Instruments {
		inst := &res.Song.Instruments[i]
		if inst.Sample.Silent() {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%02d.wav", res.Song.Name, inst.ID))
		f, err := os.Create(path)
		if err != nil {
			return written, err
		}
		err = inst.WriteWAV(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", path, err)
		}
		written++
	}
	return written, nil
}

// ruler returns a separator line as wide as the terminal, or a fixed width
// when stdout is not a terminal.
func ruler() string {
	width := 80
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	return strings.Repeat("=", width)
}

// choosePaths returns the file paths either from the command-line args
// or from an interactive file dialog.
func choosePaths(cwd string, args []string) ([]string, error) {
	// If arguments were passed to the program, use them.
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			absPath, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot get absolute path: %w", err)
			}
			if err := validatePath(absPath); err != nil {
				return nil, fmt.Errorf("passed argument is not a valid path: %w", err)
			}
			paths = append(paths, absPath)
		}
		return paths, nil
	}

	// Otherwise open the file dialog. Headerless modules have no common
	// extension, so there is no filter.
	path, err := dialog.
		File().
		Title("Open module").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Propagate the error. Caller will check for dialog.ErrCancelled.
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Check for empty path just in case.
	if absPath == "" {
		return nil, dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return nil, fmt.Errorf("dialog selection invalid: %w", err)
	}
	return []string{absPath}, nil
}

// validatePath checks that p names an existing regular file.
func validatePath(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", p)
	}
	return nil
}
