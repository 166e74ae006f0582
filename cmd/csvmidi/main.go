package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/midicsv/midicsv"
	"github.com/midicsv/midicsv/csvconv"
	"github.com/midicsv/midicsv/internal/cli"
	"github.com/midicsv/midicsv/smf"
	"github.com/midicsv/midicsv/version"
)

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	lenient := flag.Bool("l", false, "Lenient mode: report out-of-range events and unknown records as warnings and keep converting.")
	noRunningStatus := flag.Bool("r", false, "Write a status byte for every channel event instead of using running status.")
	jsonOut := flag.Bool("j", false, "Output the pattern as .json file instead of a MIDI file.")
	yamlOut := flag.Bool("y", false, "Output the pattern as .yml file instead of a MIDI file.")
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
	writeMIDI := !*jsonOut && !*yamlOut
	encoder := smf.Encoder{RunningStatus: !*noRunningStatus}
	output := cli.Output{Stdout: *stdout, Path: *outPath, Safe: *safe}
	process := func(filename string) error {
		inputBytes, err := cli.ReadInput(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		var pattern midicsv.Pattern
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(inputBytes, &pattern); err != nil {
				return fmt.Errorf("pattern could not be unmarshaled as a .yml: %v", err)
			}
		case ".json":
			if err := json.Unmarshal(inputBytes, &pattern); err != nil {
				return fmt.Errorf("pattern could not be unmarshaled as a .json: %v", err)
			}
		default:
			parser := csvconv.Parser{
				Strict: !*lenient,
				Warn: func(d midicsv.Diagnostic) {
					fmt.Fprintf(os.Stderr, "%v: warning: %v\n", filename, d)
				},
			}
			if pattern, err = parser.Parse(strings.NewReader(string(inputBytes))); err != nil {
				return fmt.Errorf("parsing failed: %v", err)
			}
		}
		if pattern.Resolution == 0 {
			pattern.Resolution = midicsv.DefaultResolution
		}
		if writeMIDI {
			midiBytes, err := encoder.Encode(pattern)
			if err != nil {
				return fmt.Errorf("encoding failed: %v", err)
			}
			if err := output.Write(filename, ".mid", midiBytes); err != nil {
				return fmt.Errorf("error outputting midi file: %v", err)
			}
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
	files, err := cli.Expand(flag.Args(), ".csv", ".yml", ".json")
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
	fmt.Fprintf(os.Stderr, "csvmidi converts CSV text to Standard MIDI Files. Input .csv files (\"-\" reads standard input) or .yml/.json pattern dumps, outputs .mid files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
