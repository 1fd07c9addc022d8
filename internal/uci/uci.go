package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/grailchess/grail/internal/board"
	"github.com/grailchess/grail/internal/engine"
)

// UCI implements the Universal Chess Interface protocol against a
// Driver (§6).
type UCI struct {
	driver   *engine.Driver
	position *board.Position
	history  []uint64

	nnuePath string

	searching  bool
	searchDone chan struct{}

	profileFile *os.File
}

// New creates a UCI handler driving eng.
func New(eng *engine.Driver) *UCI {
	return &UCI{
		driver:   eng,
		position: board.NewPosition(),
	}
}

// Run starts the UCI main loop, reading commands from stdin until EOF
// or "quit" (teacher's bufio.Scanner idiom).
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		}
	}
}

func (u *UCI) handleUCI() {
	fmt.Println("id name Grail")
	fmt.Println("id author Grail Team")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name UseNNUE type check default false")
	fmt.Println("option name EvalFile type string default <empty>")
	fmt.Println("uciok")
}

func (u *UCI) handleNewGame() {
	u.driver.NewGame()
	u.position = board.NewPosition()
	u.history = []uint64{u.position.Hash}
}

// handlePosition parses:
//
//	position startpos [moves ...]
//	position fen <fen> [moves ...]
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	moveStart := len(args) // no "moves" keyword -> no moves to apply

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}
		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string invalid FEN: %v\n", err)
			return
		}
		u.position = pos
	default:
		return
	}

	for i, arg := range args {
		if arg == "moves" {
			moveStart = i + 1
			break
		}
	}

	u.history = []uint64{u.position.Hash}

	if moveStart <= len(args) {
		for _, moveStr := range args[moveStart:] {
			m := u.parseMove(moveStr)
			if m == board.NoMove {
				fmt.Fprintf(os.Stderr, "info string invalid move: %s\n", moveStr)
				return
			}
			u.position.MakeMove(m)
			u.history = append(u.history, u.position.Hash)
		}
	}

	u.driver.SetPosition(u.position, u.history)
}

func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')
	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}
	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
		} else if !m.IsPromotion() {
			return m
		}
	}
	return board.NoMove
}

// goOptions holds parsed "go" command arguments before conversion to
// engine.UCILimits.
type goOptions struct {
	depth     int
	nodes     uint64
	moveTime  time.Duration
	infinite  bool
	wtime     time.Duration
	btime     time.Duration
	winc      time.Duration
	binc      time.Duration
	movesToGo int
}

func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)
	limits := engine.UCILimits{
		Time:      [2]time.Duration{opts.wtime, opts.btime},
		Inc:       [2]time.Duration{opts.winc, opts.binc},
		MovesToGo: opts.movesToGo,
		MoveTime:  opts.moveTime,
		Depth:     opts.depth,
		Nodes:     opts.nodes,
		Infinite:  opts.infinite,
	}

	u.driver.OnInfo = u.sendInfo

	u.searching = true
	u.searchDone = make(chan struct{})
	u.driver.OnBestMove = func(best, ponder board.Move) {
		u.searching = false
		u.sendBestMove(best, ponder)
		close(u.searchDone)
	}

	u.driver.Go(limits)
}

func (u *UCI) parseGoOptions(args []string) goOptions {
	var opts goOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.moveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.wtime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.btime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.winc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.binc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.movesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}
	return opts
}

func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string
	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}
	if info.Mate {
		parts = append(parts, fmt.Sprintf("score mate %d", info.MateIn))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}
	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))
	parts = append(parts, fmt.Sprintf("nps %d", info.NPS))
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if len(info.PV) > 0 {
		strs := make([]string, len(info.PV))
		for i, m := range info.PV {
			strs[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(strs, " "))
	}
	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

func (u *UCI) sendBestMove(best, ponder board.Move) {
	if best == board.NoMove {
		fmt.Println("bestmove 0000")
		return
	}
	if ponder != board.NoMove {
		fmt.Printf("bestmove %s ponder %s\n", best.String(), ponder.String())
		return
	}
	fmt.Printf("bestmove %s\n", best.String())
}

func (u *UCI) handleStop() {
	if u.searching {
		u.driver.Stop()
		<-u.searchDone
	}
}

func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
	}
	os.Exit(0)
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err == nil && mb >= 1 {
			u.driver.SetHashSize(mb)
		}
	case "usennue":
		use := strings.ToLower(value) == "true"
		if !u.driver.SetUseNNUE(use) {
			fmt.Fprintf(os.Stderr, "info string NNUE not loaded, staying on HCE\n")
		}
	case "evalfile":
		u.nnuePath = value
		if err := u.driver.LoadNNUE(u.nnuePath); err != nil {
			fmt.Fprintf(os.Stderr, "info string failed to load NNUE: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "info string NNUE network loaded from %s\n", u.nnuePath)
		}
	case "debug":
		engine.Debug = strings.ToLower(value) == "true"
	case "cpuprofile":
		if u.profileFile != nil {
			pprof.StopCPUProfile()
			u.profileFile.Close()
			u.profileFile = nil
		}
		if value != "" && value != "stop" {
			f, err := os.Create(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "info string failed to create profile: %v\n", err)
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				fmt.Fprintf(os.Stderr, "info string failed to start profile: %v\n", err)
				return
			}
			u.profileFile = f
		}
	}
}

// handlePerft runs a node-count debug command, outside the UCI standard
// but carried as a harmless diagnostic.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}

func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
