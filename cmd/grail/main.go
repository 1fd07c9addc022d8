package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/grailchess/grail/internal/engine"
	"github.com/grailchess/grail/internal/uci"
)

// defaultNetName is the weight file Grail looks for in its search
// directories when no -evalfile flag is given.
const defaultNetName = "grail.nnue"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	evalFile   = flag.String("evalfile", "", "path to NNUE weight file (overrides auto-detection)")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	requireNN  = flag.Bool("require-nnue", false, "fail at startup if NNUE weights cannot be loaded")
)

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("GRAIL_CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	driver := engine.NewDriver()
	driver.SetHashSize(*hashMB)

	if err := autoLoadNNUE(driver, *evalFile); err != nil {
		if *requireNN {
			log.Fatalf("NNUE weights required but not loaded: %v", err)
		}
		log.Printf("NNUE not loaded: %v (using classical evaluation)", err)
	}

	protocol := uci.New(driver)
	protocol.Run()
}

// autoLoadNNUE loads NNUE weights from an explicit path, or else
// searches the standard locations for defaultNetName (§4.C, §7.3:
// startup failure with no fallback available here is non-fatal — HCE
// always remains usable).
func autoLoadNNUE(driver *engine.Driver, explicitPath string) error {
	if explicitPath != "" {
		if err := driver.LoadNNUE(explicitPath); err != nil {
			return err
		}
		driver.SetUseNNUE(true)
		log.Printf("NNUE loaded from %s", explicitPath)
		return nil
	}

	searchPaths := []string{
		filepath.Join(getAppSupportDir(), defaultNetName),
		filepath.Join(getHomeDir(), ".grail", defaultNetName),
		filepath.Join(".", "nnue", defaultNetName),
		filepath.Join(".", defaultNetName),
	}

	for _, path := range searchPaths {
		if !fileExists(path) {
			continue
		}
		if err := driver.LoadNNUE(path); err != nil {
			log.Printf("failed to load NNUE from %s: %v", path, err)
			continue
		}
		driver.SetUseNNUE(true)
		log.Printf("NNUE loaded from %s", path)
		return nil
	}

	return os.ErrNotExist
}

func getAppSupportDir() string {
	return filepath.Join(getHomeDir(), "Library", "Application Support", "grail", "nnue")
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
