package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/midicsv/midicsv"
	"github.com/midicsv/midicsv/csvconv"
	"github.com/midicsv/midicsv/internal/cli"
	"github.com/midicsv/midicsv/report"
	"github.com/midicsv/midicsv/smf"
	"github.com/midicsv/midicsv/version"
)

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	lenient := flag.Bool("l", false, "Lenient mode: report out-of-range events as warnings and keep converting.")
	absolute := flag.Bool("a", false, "Store absolute ticks in the .json and .yml dumps.")
	jsonOut := flag.Bool("j", false, "Output the pattern as .json file instead of CSV.")
	yamlOut := flag.Bool("y", false, "Output the pattern as .yml file instead of CSV.")
	tmplDir := flag.String("t", "", "Output a report instead of CSV, using the templates in this directory. Use \"builtin\" for the standard templates.")
	tmplName := flag.String("T", report.DefaultTemplate, "Name of the report template to execute.")
	outPath := flag.String("o", "", "Directory or filename where to write the output. Extension is ignored. Directory and its parents are created if needed. By default, everything is placed in the same directory where the original file is.")
	verbose := flag.Bool("verbose", false, "Print the name of every file converted.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	var reporter *report.Reporter
	if *tmplDir != "" {
		var err error
		if *tmplDir == "builtin" {
			reporter, err = report.New()
		} else {
			reporter, err = report.NewFromTemplates(*tmplDir)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating reporter: %v\n", err)
			os.Exit(1)
		}
	}
	writeCSV := !*jsonOut && !*yamlOut && reporter == nil
	output := cli.Output{Stdout: *stdout, Path: *outPath, Safe: *safe}
	process := func(filename string) error {
		inputBytes, err := cli.ReadInput(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		decoder := smf.Decoder{
			Strict: !*lenient,
			Warn: func(d midicsv.Diagnostic) {
				fmt.Fprintf(os.Stderr, "%v: warning: %v\n", filename, d)
			},
		}
		pattern, err := decoder.Decode(inputBytes)
		if err != nil {
			return fmt.Errorf("decoding failed: %v", err)
		}
		if writeCSV {
			if err := output.Write(filename, ".csv", []byte(csvconv.Render(pattern)+"\n")); err != nil {
				return fmt.Errorf("error outputting csv file: %v", err)
			}
		}
		if reporter != nil {
			text, err := reporter.Render(*tmplName, pattern)
			if err != nil {
				return err
			}
			if err := output.Write(filename, ".txt", []byte(text)); err != nil {
				return fmt.Errorf("error outputting report: %v", err)
			}
		}
		if *absolute {
			pattern.MakeTicksAbs()
		}
		if *jsonOut {
			jsonPattern, err := json.Marshal(pattern)
			if err != nil {
				return fmt.Errorf("could not marshal the pattern as json file: %v", err)
			}
			if err := output.Write(filename, ".json", jsonPattern); err != nil {
				return fmt.Errorf("error outputting json file: %v", err)
			}
		}
		if *yamlOut {
			yamlPattern, err := yaml.Marshal(pattern)
			if err != nil {
				return fmt.Errorf("could not marshal the pattern as yaml file: %v", err)
			}
			if err := output.Write(filename, ".yml", yamlPattern); err != nil {
				return fmt.Errorf("error outputting yaml file: %v", err)
			}
		}
		return nil
	}
	files, err := cli.Expand(flag.Args(), ".mid", ".midi")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	retval := 0
	for _, file := range files {
		if *verbose {
			fmt.Fprintln(os.Stderr, file)
		}
		if err := process(file); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "midicsv converts Standard MIDI Files to CSV text. Input .mid files (\"-\" reads standard input), outputs .csv files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
