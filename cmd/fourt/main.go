// Package main is the entry point for the fourt CLI
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chunn241529/FourT-sub001/pkg/api"
	"github.com/Chunn241529/FourT-sub001/pkg/engine"
	"github.com/Chunn241529/FourT-sub001/pkg/input"
	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/score"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
	"github.com/Chunn241529/FourT-sub001/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	debugMode  bool
	outputFile string
	layoutFile string
	transposeN int
	noAuto     bool
	smartBass  bool

	jsonOut    bool
	eventCount int

	playSpeed    float64
	playLoop     bool
	playHand     string
	playHumanize bool
	playDelay    int
	playDryRun   bool

	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fourt",
	Short: "Play MIDI files on the in-game 21-key instrument",
	Long: `fourt turns MIDI files into precisely timed key presses for the
three-row in-game instrument. Natural notes map onto the z, a and q rows,
and accidentals are reached by tapping Shift or Ctrl together with the key.

Examples:
  fourt analyze song.mid
  fourt analyze song.mid --json
  fourt play song.mid --delay 3
  fourt play song.mid --speed 1.5 --loop --smart-bass
  fourt sanitize broken.mid -o fixed.mid
  fourt tui
  fourt serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input.mid>",
	Short: "Analyze a MIDI file and print the playback plan",
	Long:  `Analyzes a MIDI file without playing it: estimated key, transpose amounts, range coverage and the compiled key events.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var playCmd = &cobra.Command{
	Use:   "play <input.mid>",
	Short: "Play a MIDI file through simulated key presses",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize <input.mid>",
	Short: "Repair a corrupted MIDI file",
	Long:  `Repairs truncated or corrupted MIDI event data so the file parses again, and writes the repaired copy.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSanitize,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal player",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	// Scoring flags shared by analyze and play
	for _, c := range []*cobra.Command{analyzeCmd, playCmd} {
		c.Flags().IntVar(&transposeN, "transpose", 0, "Manual transpose in semitones (disables key estimation)")
		c.Flags().BoolVar(&noAuto, "no-auto", false, "Disable automatic key estimation")
		c.Flags().BoolVar(&smartBass, "smart-bass", false, "Split chords into melody and bass hands")
		c.Flags().StringVar(&layoutFile, "layout", "", "YAML key layout file")
	}

	// analyze command
	analyzeCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")
	analyzeCmd.Flags().IntVar(&eventCount, "events", 0, "Print the first N compiled events")

	// play command
	playCmd.Flags().Float64Var(&playSpeed, "speed", 1.0, "Playback speed multiplier")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "Repeat until interrupted")
	playCmd.Flags().StringVar(&playHand, "hand", "both", "Hand to play (both|left|right)")
	playCmd.Flags().BoolVar(&playHumanize, "humanize", false, "Add subtle timing jitter")
	playCmd.Flags().IntVar(&playDelay, "delay", 0, "Countdown seconds before playback starts")
	playCmd.Flags().BoolVar(&playDryRun, "dry-run", false, "Log key events instead of sending them")

	// sanitize command
	sanitizeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getScoreOptions(cmd *cobra.Command) (score.Options, error) {
	opts := score.Options{
		AutoTranspose: !noAuto,
		SmartBass:     smartBass,
	}
	if cmd.Flags().Changed("transpose") {
		t := transposeN
		opts.ManualTranspose = &t
	}
	if layoutFile != "" {
		layout, err := keymap.LoadLayout(layoutFile)
		if err != nil {
			return opts, err
		}
		opts.Layout = layout
	}
	return opts, nil
}

func getHandMode() (engine.HandMode, error) {
	switch strings.ToLower(playHand) {
	case "", "both":
		return engine.HandBoth, nil
	case "left":
		return engine.HandLeft, nil
	case "right":
		return engine.HandRight, nil
	default:
		return engine.HandBoth, fmt.Errorf("unknown hand mode %q (both|left|right)", playHand)
	}
}

func getOutputPath(input, suffix string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix
}

func printSummary(res *score.Result) {
	d := res.Debug
	fmt.Printf("Estimated key:  %s\n", d.EstimatedKey)
	fmt.Printf("Transpose:      %+d semitones (octave shift %+d)\n", d.Transpose, d.OctaveShift)
	fmt.Printf("Range:          %d in range, %d folded\n", d.InRange, d.OutRange)
	fmt.Printf("Notes:          %d (%d key events)\n", d.TotalNotes, len(res.Events))
	fmt.Printf("Duration:       %.1fs\n", res.Duration)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := getScoreOptions(cmd)
	if err != nil {
		return err
	}

	res, err := score.Preprocess(args[0], opts)
	if err != nil {
		return err
	}

	if jsonOut {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printSummary(res)

	if eventCount > 0 {
		fmt.Println()
		for i, ev := range res.Events {
			if i >= eventCount {
				fmt.Printf("... %d more\n", len(res.Events)-i)
				break
			}
			mod := ""
			if ev.Mod != keymap.ModNone {
				mod = ev.Mod.String() + "+"
			}
			fmt.Printf("%8.3fs  %-7s %s%s\n", ev.Time, ev.Act, mod, ev.Key)
		}
	}

	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	opts, err := getScoreOptions(cmd)
	if err != nil {
		return err
	}

	hand, err := getHandMode()
	if err != nil {
		return err
	}

	if playSpeed <= 0 {
		return fmt.Errorf("speed must be a positive number, got %v", playSpeed)
	}

	res, err := score.Preprocess(args[0], opts)
	if err != nil {
		return err
	}

	printSummary(res)
	if len(res.Events) == 0 {
		fmt.Println("Nothing to play")
		return nil
	}

	for i := playDelay; i > 0; i-- {
		fmt.Printf("Starting in %d...\n", i)
		time.Sleep(time.Second)
	}

	backend := input.New()
	if playDryRun {
		backend = input.NewLogBackend(nil)
	}
	eng := engine.New(input.NewController(backend, nil), nil)

	session := engine.Session{
		Events:   res.Events,
		Speed:    playSpeed,
		Loop:     playLoop,
		HandMode: hand,
		Humanize: playHumanize,
	}

	done := make(chan error, 1)
	if err := eng.Play(session, func(err error) { done <- err }); err != nil {
		return err
	}
	fmt.Println("Playing... press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		fmt.Println("Playback complete")
	case <-sig:
		fmt.Println("\nStopping...")
		eng.Stop()
		<-done
	}

	return nil
}

func runSanitize(cmd *cobra.Command, args []string) error {
	src := args[0]
	output := getOutputPath(src, ".clean.mid")

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	repaired := data
	fixed := 0
	if _, err := song.LoadBytes(data); err != nil {
		repaired, fixed, err = song.RepairBytes(data)
		if err != nil {
			return err
		}
		if _, err := song.LoadBytes(repaired); err != nil {
			return song.ErrUnrepairable
		}
	}

	if err := os.WriteFile(output, repaired, 0644); err != nil {
		return err
	}

	fmt.Printf("Repaired %d events: %s -> %s\n", fixed, src, output)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
